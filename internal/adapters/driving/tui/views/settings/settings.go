// Package settings provides the settings editor view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// ErrNoSettingsService is reported when the view has no settings to show.
var ErrNoSettingsService = errors.New("settings service not available")

// View lists the settings keys and edits one at a time.
type View struct {
	styles   *styles.Styles
	settings driving.SettingsService

	current *domain.AppSettings
	keys    []string
	err     error
	notice  string

	selected int
	editing  bool
	input    textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a settings view.
func NewView(s *styles.Styles, settings driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	input := textinput.New()
	input.CharLimit = 256

	v := &View{styles: s, settings: settings, input: input, width: 80, height: 24}
	if settings != nil {
		v.keys = settings.Keys()
	}
	return v
}

// Init loads the current settings.
func (v *View) Init() tea.Cmd {
	return v.load()
}

func (v *View) load() tea.Cmd {
	svc := v.settings
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		s, err := svc.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.current = msg.Settings
		}
		return v, nil

	case messages.SettingSaved:
		if msg.Err != nil {
			v.err = msg.Err
			v.notice = ""
			return v, nil
		}
		v.err = nil
		v.notice = msg.Key + " saved; restart the TUI to apply it"
		return v, v.load()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKey(msg)
		}
		return v.handleListKey(msg)
	}

	if v.editing {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleListKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewAsk} }
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.keys)-1 {
			v.selected++
		}
	case "enter":
		if key := v.SelectedKey(); key != "" {
			v.startEdit(key)
			return v, textinput.Blink
		}
	case "d":
		if key := v.SelectedKey(); key != "" {
			return v, v.unset(key)
		}
	}
	return v, nil
}

func (v *View) handleEditKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.editing = false
		v.input.Blur()
		return v, nil
	case "enter":
		key, value := v.SelectedKey(), strings.TrimSpace(v.input.Value())
		v.editing = false
		v.input.Blur()
		return v, v.set(key, value)
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) startEdit(key string) {
	v.editing = true
	v.notice = ""
	v.input.SetValue("")
	v.input.Placeholder = key
	v.input.EchoMode = textinput.EchoNormal
	if isSecret(key) {
		v.input.EchoMode = textinput.EchoPassword
	}
	v.input.Focus()
}

func (v *View) set(key, value string) tea.Cmd {
	svc := v.settings
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingSaved{Key: key, Err: ErrNoSettingsService}
		}
		return messages.SettingSaved{Key: key, Err: svc.Set(key, value)}
	}
}

func (v *View) unset(key string) tea.Cmd {
	svc := v.settings
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingSaved{Key: key, Err: ErrNoSettingsService}
		}
		return messages.SettingSaved{Key: key, Err: svc.Unset(key)}
	}
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password")
}

// View renders the settings view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("Settings"), ""}
	if v.current != nil {
		sections = append(sections, v.renderSummary(), "")
	}
	sections = append(sections, v.renderKeys())

	if v.editing {
		sections = append(sections, "", v.styles.Input.Width(max(v.width-4, 20)).Render(v.input.View()))
	}
	if v.err != nil {
		sections = append(sections, "", v.styles.Error.Render("Error: "+v.err.Error()))
	} else if v.notice != "" {
		sections = append(sections, "", v.styles.Citation.Render(v.notice))
	}

	help := "↑/↓ select • enter edit • d reset to default • esc back"
	if v.editing {
		help = "enter save • esc cancel"
	}
	sections = append(sections, "", v.styles.Help.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderSummary() string {
	s := v.current
	row := func(label, value string) string {
		return fmt.Sprintf("  %-12s %s", label, value)
	}
	configured := func(ok bool) string {
		if ok {
			return "configured"
		}
		return "not configured"
	}
	lines := []string{
		row("Store", string(s.Store.Backend)),
		row("Embedding", fmt.Sprintf("%s %s (%s)", s.Embedding.Provider, s.Embedding.Model, configured(s.Embedding.IsConfigured()))),
		row("LLM", fmt.Sprintf("%s %s (%s)", s.LLM.Provider, s.LLM.Model, configured(s.LLM.IsConfigured()))),
		row("Guardrail", fmt.Sprintf("%s, threshold %.2f", s.Guardrail.Scorer, s.Guardrail.Threshold)),
	}
	return v.styles.Normal.Render(strings.Join(lines, "\n"))
}

func (v *View) renderKeys() string {
	if len(v.keys) == 0 {
		return v.styles.Muted.Render("No settings")
	}

	visible := max(v.height-16, 3)
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(v.keys))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		if i == v.selected {
			lines = append(lines, v.styles.Selected.Render("> "+v.keys[i]))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+v.keys[i]))
		}
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the render area.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.Width = max(width-10, 10)
}

// SelectedKey returns the highlighted key, empty when there are none.
func (v *View) SelectedKey() string {
	if v.selected < 0 || v.selected >= len(v.keys) {
		return ""
	}
	return v.keys[v.selected]
}

// Editing reports whether a value is being entered.
func (v *View) Editing() bool {
	return v.editing
}

// Settings returns the last loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.current
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Notice returns the last confirmation message.
func (v *View) Notice() string {
	return v.notice
}
