package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
	"github.com/custodia-labs/lexgraph/internal/core/services"
)

type ctxKey struct{}

type stubAnswers struct {
	driving.AnswerService
	ctx context.Context
}

func (s *stubAnswers) Answer(ctx context.Context, _ domain.AnswerRequest) (*domain.Answer, error) {
	s.ctx = ctx
	return domain.InsufficientAnswer(), nil
}

func newSettings() *services.SettingsService {
	return services.NewSettingsService(memory.NewConfigStore(), nil)
}

func newTestApp(t *testing.T) (*App, *stubAnswers) {
	t.Helper()
	answers := &stubAnswers{}
	app, err := NewApp(&Ports{Answers: answers, Settings: newSettings()})
	require.NoError(t, err)
	_, _ = app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app, answers
}

func update(t *testing.T, app *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	m, cmd := app.Update(msg)
	require.Same(t, app, m)
	return cmd
}

func TestNewApp_RequiresPorts(t *testing.T) {
	_, err := NewApp(&Ports{Settings: newSettings()})
	assert.ErrorIs(t, err, ErrMissingAnswerService)

	_, err = NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingAnswerService)
}

func TestApp_StartsOnAskView(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.NotNil(t, app.Init())
	assert.Contains(t, app.View(), "enter ask")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_SwitchesToSettingsAndBack(t *testing.T) {
	app, _ := newTestApp(t)

	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, messages.ViewSettings, app.CurrentView())
	require.NotNil(t, cmd)

	loaded := cmd()
	require.IsType(t, messages.SettingsLoaded{}, loaded)
	update(t, app, loaded)
	assert.Contains(t, app.View(), "Guardrail")

	cmd = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	update(t, app, cmd())
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
}

func TestApp_RoutesAnswerToAskView(t *testing.T) {
	app, answers := newTestApp(t)
	ctx := context.WithValue(context.Background(), ctxKey{}, "tui")
	app.WithContext(ctx)

	for _, r := range "Which articles apply?" {
		update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	cmd := update(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// Answers arriving while settings are open still reach the ask view.
	update(t, app, messages.ViewChanged{View: messages.ViewSettings})
	update(t, app, cmd())
	assert.Same(t, ctx, answers.ctx)

	update(t, app, messages.ViewChanged{View: messages.ViewAsk})
	assert.Contains(t, app.View(), domain.InsufficientMessage)
}
