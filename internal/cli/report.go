package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"peanalyze/internal/analyze"
	"peanalyze/internal/logging"
)

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Analyze a PE file and print the full report as JSON",
	Long: `Run the full analysis pipeline and print the resulting Report as
indented JSON — every parsed header, function, xref, and per-function
signature/frame/loop result, suitable for scripting or regression
comparison.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		logger := logging.NewLogger()
		defer logger.Close()

		p := analyze.New(logger.Logger)
		report, err := p.Analyze(context.Background(), image)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", args[0], err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
