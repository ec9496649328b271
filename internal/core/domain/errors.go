package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates no entity (or no expression covering a date) exists.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or unsupported input,
	// such as an unparseable date expression or reference.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguous indicates more than one expression of a work covers a date.
	// This is an ingestion invariant violation and is never resolved silently.
	ErrAmbiguous = errors.New("ambiguous version")

	// ErrConfiguration indicates the system is misconfigured.
	// Configuration errors are fatal and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransient indicates a capability failed in a way that may succeed on retry.
	ErrTransient = errors.New("transient capability failure")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation always yields the insufficient-information response.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Retrieval falls back to keyword matching only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the graph store cannot be reached.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// ErrGenerationTimeout indicates a generation call exceeded its deadline.
var ErrGenerationTimeout = fmt.Errorf("generation timeout: %w", ErrTransient)

// ErrQueryTimeout indicates a graph-store call exceeded its deadline.
var ErrQueryTimeout = fmt.Errorf("graph query timeout: %w", ErrTransient)

// ErrMissingCredentials indicates a provider needs an API key that is not set.
var ErrMissingCredentials = fmt.Errorf("missing credentials: %w", ErrConfiguration)

// ErrDimensionMismatch indicates the embedding size differs from the vector index size.
var ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch: %w", ErrConfiguration)

// IsClientError reports whether err is caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound)
}

// IsFatal reports whether err must be surfaced instead of degrading to the
// insufficient-information response.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
