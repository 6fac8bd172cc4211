package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss/v2"
)

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// status prints a dimmed progress line to stderr, the same gray the
// teacher used for non-selected addresses in root.go's TUI. Skipped
// entirely when color output is suppressed.
func status(msg string) {
	if os.Getenv("PEANALYZE_NO_COLOR") != "" {
		return
	}
	os.Stderr.WriteString(statusStyle.Render(msg) + "\n")
}
