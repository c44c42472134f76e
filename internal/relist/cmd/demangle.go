package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"relist/internal/symbols"
	"relist/internal/tokens"
)

var demangleCmd = &cobra.Command{
	Use:   "demangle [names...]",
	Short: "Demangle Rust and C++ symbol names",
	Long: `Demangle each argument, or each line of standard input when no
arguments are given. Names that cannot be demangled are printed unchanged.`,
	Example: `
relist demangle _RNvC6_123foo3bar
nm -j binary | relist demangle
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		color := useColor()
		if f, ok := cmd.OutOrStdout().(*os.File); !ok || !term.IsTerminal(f.Fd()) {
			color = false
		}
		if len(args) > 0 {
			return demangleNames(cmd.OutOrStdout(), args, color)
		}
		return demangleLines(cmd.OutOrStdout(), cmd.InOrStdin(), color)
	},
}

func demangleNames(w io.Writer, names []string, color bool) error {
	for _, name := range names {
		if err := writeDemangled(w, name, color); err != nil {
			return err
		}
	}
	return nil
}

func demangleLines(w io.Writer, r io.Reader, color bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := writeDemangled(w, strings.TrimSpace(sc.Text()), color); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read names: %w", err)
	}
	return nil
}

func writeDemangled(w io.Writer, name string, color bool) error {
	if name == "" {
		_, err := fmt.Fprintln(w)
		return err
	}
	toks, _ := symbols.Demangle(name)
	_, err := fmt.Fprintln(w, tokens.RenderStream(toks, color))
	return err
}
