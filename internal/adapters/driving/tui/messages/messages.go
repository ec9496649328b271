// Package messages defines the Bubbletea messages exchanged by TUI views.
package messages

import "github.com/custodia-labs/lexgraph/internal/core/domain"

// ViewType identifies which view is active.
type ViewType int

const (
	// ViewAsk is the question and answer view.
	ViewAsk ViewType = iota
	// ViewSettings is the settings editor.
	ViewSettings
)

// String returns the view name.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ViewChanged asks the app to switch views.
type ViewChanged struct {
	View ViewType
}

// AnswerCompleted carries an answer back to the ask view.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// SettingsLoaded carries the current settings to the settings view.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingSaved reports the outcome of setting or unsetting one key.
type SettingSaved struct {
	Key string
	Err error
}
