package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relist/internal/symbols"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [file]",
	Short: "List the labels found in a binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvePath(args[0])
		if err != nil {
			return err
		}
		d, err := openBinary(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer d.Close()
		return writeSymbols(cmd.OutOrStdout(), d.Symbols)
	},
}

// writeSymbols prints one label per line in address order.
func writeSymbols(w io.Writer, idx *symbols.Index) error {
	for l := range idx.All() {
		if _, err := fmt.Fprintf(w, "%016x %8d %-8s %-7s %s\n",
			l.Addr, l.Size, l.Kind, l.Scheme, l.String()); err != nil {
			return err
		}
	}
	return nil
}
