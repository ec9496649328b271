package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui"
)

// newProgram starts the Bubbletea program. Tests replace it.
var newProgram = func(model tea.Model) interface{ Run() (tea.Model, error) } {
	return tea.NewProgram(model, tea.WithAltScreen())
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface.

Ask a question with an as-of date, browse the cited paragraphs with their
provenance and edit settings without leaving the terminal.

Controls:
  Enter   - Ask / Open source
  Tab     - Switch between question and as-of date
  ↑/k ↓/j - Navigate sources or settings
  Ctrl+S  - Settings
  Esc     - Back
  Ctrl+C  - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Answers: rt.Answers, Settings: settingsService})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(contextOf(cmd))

	if _, err := newProgram(app).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
