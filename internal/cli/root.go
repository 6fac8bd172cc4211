// Package cli wires the peanalyze command tree: run, report, schema,
// and logs. Grounded on internal/reverse/cmd's root/run/schema split
// and its Execute() fang-vs-cobra dispatch, trimmed to drop every
// flag and subcommand that only served the interactive viewer.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "peanalyze",
	Short: "Static analyzer for Windows PE binaries",
	Long: `peanalyze parses a PE image, disassembles its executable sections,
discovers functions, builds a cross-reference graph, and infers
per-function control flow, calling convention, and stack frames.`,
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colorized listing/report output")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			os.Setenv("PEANALYZE_LOG_LEVEL", "debug")
		}
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			os.Setenv("PEANALYZE_NO_COLOR", "1")
		}
		return nil
	}
}

// Execute runs the command tree, using fang's enhanced rendering when
// stdout is a terminal and falling back to plain cobra otherwise, to
// avoid garbling piped output.
func Execute() {
	noColorFlag := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-color" {
			noColorFlag = true
			break
		}
	}
	if noColorFlag || !term.IsTerminal(os.Stdout.Fd()) {
		os.Setenv("PEANALYZE_NO_COLOR", "1")
	}

	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}
