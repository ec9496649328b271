// Package styles holds the lipgloss styles shared by the TUI views.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette colours.
var (
	primary   = lipgloss.Color("#7C3AED")
	secondary = lipgloss.Color("#06B6D4")
	text      = lipgloss.Color("#CDD6F4")
	muted     = lipgloss.Color("#6C7086")
	success   = lipgloss.Color("#A6E3A1")
	warning   = lipgloss.Color("#F9E2AF")
	danger    = lipgloss.Color("#F38BA8")
	border    = lipgloss.Color("#45475A")
)

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Citation lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style

	// Input frames a focused text field; Blurred frames the others.
	Input   lipgloss.Style
	Blurred lipgloss.Style
	Border  lipgloss.Style
}

// DefaultStyles returns the default theme.
func DefaultStyles() *Styles {
	field := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1)
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(secondary),
		Normal:   lipgloss.NewStyle().Foreground(text),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(text).Background(primary),
		Citation: lipgloss.NewStyle().Foreground(success),
		Error:    lipgloss.NewStyle().Foreground(danger),
		Warning:  lipgloss.NewStyle().Foreground(warning),
		Help:     lipgloss.NewStyle().Foreground(muted),
		Input:    field.BorderForeground(primary),
		Blurred:  field.BorderForeground(border),
		Border:   lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(border),
	}
}
