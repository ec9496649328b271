package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// ActionsService exposes the individual retrieval building blocks.
type ActionsService interface {
	// SearchItems finds candidate works and articles by title or number.
	SearchItems(ctx context.Context, query string, filter domain.CandidateFilter, limit int) ([]domain.CandidateItem, error)

	// ResolveTemporalScope parses an as-of expression relative to today.
	ResolveTemporalScope(expr string) (domain.TemporalScope, error)

	// GetValidVersion resolves the expression in force for a reference.
	// reference is "kind:id", "urn:kind:id" or a bare work id.
	GetValidVersion(ctx context.Context, reference string, date time.Time) (*domain.ResolvedVersion, error)

	// SearchTextUnits retrieves paragraphs of an expression for a query.
	SearchTextUnits(ctx context.Context, expressionID, query string, topK int) ([]domain.RetrievedParagraph, error)
}
