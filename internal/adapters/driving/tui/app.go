package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/views/settings"
)

// App is the root Bubbletea model. It routes messages to the active view.
type App struct {
	ports *Ports
	ctx   context.Context

	askView      *ask.View
	settingsView *settings.View

	current messages.ViewType
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI over ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	s := styles.DefaultStyles()
	return &App{
		ports:        ports,
		ctx:          context.Background(),
		askView:      ask.NewView(s, ports.Answers),
		settingsView: settings.NewView(s, ports.Settings),
		current:      messages.ViewAsk,
	}, nil
}

// WithContext sets the context answers run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("lexgraph"), a.askView.Init())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.askView.SetDimensions(msg.Width, msg.Height)
		a.settingsView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+s":
			if a.current != messages.ViewSettings {
				return a.switchTo(messages.ViewSettings)
			}
		}

	case messages.ViewChanged:
		return a.switchTo(msg.View)

	case messages.AnswerCompleted:
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.SettingsLoaded, messages.SettingSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd
	}

	switch a.current {
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) (tea.Model, tea.Cmd) {
	a.current = view
	if view == messages.ViewSettings {
		return a, a.settingsView.Init()
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.current == messages.ViewSettings {
		return a.settingsView.View()
	}
	return a.askView.View()
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.current
}
