// Package mcp provides an MCP (Model Context Protocol) server adapter for lexgraph.
// It lets AI assistants ask time-valid regulatory questions and call the
// retrieval building blocks as tools.
package mcp

import "errors"

var (
	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("mcp: answer service is required")

	// ErrMissingActionsService is returned when the actions service is not provided.
	ErrMissingActionsService = errors.New("mcp: actions service is required")
)
