package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"peanalyze/internal/analyze"
	"peanalyze/internal/disasm"
	"peanalyze/internal/logging"
	"peanalyze/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Analyze a PE file and print a Markdown report",
	Long: `Run the full analysis pipeline over a PE file and print a
human-readable Markdown report: sections, imports, exports, and every
discovered function's signature, frame, and loop summary.`,
	Example: `
# Analyze a binary and print the report
peanalyze run ./sample.exe

# Include the colorized disassembly listing for every function
peanalyze run --asm ./sample.exe
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showAsm, _ := cmd.Flags().GetBool("asm")
		return runAnalysis(cmd, args[0], showAsm)
	},
}

func init() {
	runCmd.Flags().Bool("asm", false, "also print the colorized disassembly listing")
	rootCmd.AddCommand(runCmd)
}

func runAnalysis(cmd *cobra.Command, path string, showAsm bool) error {
	status("analyzing " + path)

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	logger := logging.NewLogger()
	defer logger.Close()

	p := analyze.New(logger.Logger)
	report, err := p.Analyze(context.Background(), image)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", path, err)
	}

	md, err := render.Markdown(report)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), md)

	if showAsm {
		for _, fn := range report.Functions {
			var insts []disasm.Instruction
			for _, blk := range fn.Blocks {
				insts = append(insts, blk.Instructions...)
			}
			if len(insts) == 0 {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", fn.Function.Name)
			fmt.Fprint(cmd.OutOrStdout(), render.Listing(insts))
		}
	}
	return nil
}
