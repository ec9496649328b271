package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var jsonOutput bool

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// wantJSON reports whether cmd should print JSON: on request, or when
// stdout is not a terminal.
func wantJSON(cmd *cobra.Command) bool {
	return jsonOutput || !isTerminal(cmd.OutOrStdout())
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// field prints an aligned "label: value" line.
func field(cmd *cobra.Command, label, value string) {
	cmd.Printf("  %s %s\n", labelStyle.Render(label+":"), value)
}
