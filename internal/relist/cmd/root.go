package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"relist/internal/config"
	"relist/internal/disassembly"
	"relist/internal/logging"
	"relist/internal/relist/log"
	"relist/internal/symbols"
	"relist/internal/ui/colorize"
)

// cfg is the effective configuration, loaded before every command.
var cfg config.Config

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("log-file", "", "Write command logs to this file")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colour output")
	rootCmd.PersistentFlags().Bool("follow", false, "Also decode at in-section branch targets")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print the listing without the TUI")
	rootCmd.Flags().BoolP("json", "j", false, "Output the listing as JSON")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(runCmd, symbolsCmd, demangleCmd, infoCmd, schemaCmd)
}

var rootCmd = &cobra.Command{
	Use:   "relist [file]",
	Short: "Recursive disassembly listings for ELF, PE and Mach-O binaries",
	Long: `Relist decodes the executable section holding a binary's entry point,
labels it with demangled symbols and imports, and shows the listing in an
interactive viewer or as plain text.`,
	Example: `
# Browse a binary
relist /path/to/binary

# Print the listing
relist -n /path/to/binary

# Dump the listing as JSON
relist --json /path/to/binary
  `,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := startProfiling(cmd)
		if err != nil {
			return err
		}
		defer stop()

		path, err := resolvePath(args[0])
		if err != nil {
			return err
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if !term.IsTerminal(os.Stdout.Fd()) {
			noTUI = true
		}
		if noTUI || jsonOutput {
			os.Setenv("RELIST_NO_COLOR", "1")
		}

		if jsonOutput || noTUI {
			d, err := openBinary(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer d.Close()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			return writeListing(cmd.OutOrStdout(), d, d.Lines(d.Proc.Iter()), useColor())
		}

		program := tea.NewProgram(
			newModel(cmd.Context(), path),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		final, err := program.Run()
		if m, ok := final.(model); ok {
			m.close()
		}
		if err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

// setup loads the configuration, applies flag overrides and configures
// logging and the demangle cache.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		c.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("no-color") {
		c.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Changed("follow") {
		c.FollowTargets, _ = flags.GetBool("follow")
	}

	logFile, _ := flags.GetString("log-file")
	log.Setup(logFile, c.Debug)

	level := logging.ParseLevel(c.LogLevel)
	if c.Debug {
		level = charmlog.DebugLevel
	}
	logging.Default().SetLevel(level)

	if err := symbols.SetCacheSize(c.DemangleCache); err != nil {
		return fmt.Errorf("demangle cache: %w", err)
	}

	cfg = c
	slog.Debug("Configuration loaded", "config", fmt.Sprintf("%+v", c))
	return nil
}

func useColor() bool {
	return !cfg.NoColor && !colorize.Disabled()
}

func openBinary(ctx context.Context, path string) (*disassembly.Disassembly, error) {
	return disassembly.Open(ctx, path, disassembly.Options{
		FollowTargets: cfg.FollowTargets,
		EntryFallback: cfg.EntryFallback,
		Logger:        logging.Default(),
	})
}

func resolvePath(file string) (string, error) {
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", file)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	return absPath, nil
}

// startProfiling honours --cpuprofile and --memprofile. The returned
// function stops the CPU profile and writes the heap profile.
func startProfiling(cmd *cobra.Command) (func(), error) {
	var stops []func()

	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		stops = append(stops, func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}, nil
}

// Execute runs the root command. Plain cobra is used when the output is
// not a terminal so fang's styling does not leak into pipes.
func Execute() {
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			noTUI = true
			break
		}
	}
	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
