// Package tui provides the interactive terminal interface for lexgraph.
// It is a driving adapter over the answer and settings services.
package tui

import (
	"errors"

	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("tui: answer service is required")

// ErrMissingSettingsService is returned when the settings service is not provided.
var ErrMissingSettingsService = errors.New("tui: settings service is required")

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	Answers  driving.AnswerService
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answers == nil {
		return ErrMissingAnswerService
	}
	if p.Settings == nil {
		return ErrMissingSettingsService
	}
	return nil
}
