package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"relist/internal/processor"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Print a window of the listing and exit",
	Long: `Print part of the listing in non-interactive mode and exit.
The window starts at --start (the entry point by default) and holds at most
--count entries.`,
	Example: `
# Twenty entries from the entry point
relist run /path/to/binary --count 20

# Everything from an address, following branch targets
relist run /path/to/binary --start 0x401000 --count 0 --follow
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvePath(args[0])
		if err != nil {
			return err
		}
		count, _ := cmd.Flags().GetInt("count")
		startFlag, _ := cmd.Flags().GetString("start")

		d, err := openBinary(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer d.Close()

		start := d.Image.Entry
		if startFlag != "" {
			start, err = parseAddr(startFlag)
			if err != nil {
				return err
			}
		}

		span := d.Proc.InRange(processor.Included(start), processor.Unbounded())
		if count > 0 {
			span = span.Head(count)
		}
		slog.Debug("Printing window", "start", fmt.Sprintf("%#x", start), "entries", span.Len())

		return writeListing(cmd.OutOrStdout(), d, d.Lines(span), useColor())
	},
}

// parseAddr accepts decimal, 0x hex, 0o octal and 0b binary addresses.
func parseAddr(s string) (uint64, error) {
	a, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

func init() {
	runCmd.Flags().String("start", "", "First address of the window (default: entry point)")
	runCmd.Flags().Int("count", 32, "Maximum number of entries, 0 for all")
}
