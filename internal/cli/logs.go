package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the most recent debug log written with PEANALYZE_LOG_TO_FILE=1",
	Long: `peanalyze's debug logging can be redirected to a timestamped file
instead of stderr (PEANALYZE_LOG_TO_FILE=1). logs prints the most
recently written of those files, or follows it as it grows with
--follow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")

		path, err := latestDebugLog()
		if err != nil {
			return err
		}

		t, err := tail.TailFile(path, tail.Config{
			Follow: follow,
			ReOpen: follow,
			Poll:   true,
		})
		if err != nil {
			return fmt.Errorf("tailing %s: %w", path, err)
		}
		defer t.Stop()

		for line := range t.Lines {
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line.Text)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "keep reading as the log file grows")
	rootCmd.AddCommand(logsCmd)
}

// latestDebugLog finds the peanalyze-*-debug.log in the current
// directory whose name sorts last, i.e. the latest timestamp in the
// naming NewLogger writes when PEANALYZE_LOG_TO_FILE=1.
func latestDebugLog() (string, error) {
	entries, err := os.ReadDir(".")
	if err != nil {
		return "", fmt.Errorf("listing log files: %w", err)
	}

	var candidates []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "peanalyze-") && strings.HasSuffix(e.Name(), "-debug.log") {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no peanalyze debug log found (run with PEANALYZE_LOG_TO_FILE=1 first)")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name() > candidates[j].Name() })
	return filepath.Join(".", candidates[0].Name()), nil
}
