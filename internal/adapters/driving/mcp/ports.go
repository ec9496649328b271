package mcp

import (
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Answers runs the single-pass and orchestrated pipelines.
	Answers driving.AnswerService

	// Actions exposes the retrieval building blocks.
	Actions driving.ActionsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	if p.Actions == nil {
		return ErrMissingActionsService
	}
	return nil
}
