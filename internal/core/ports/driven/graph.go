package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// GraphStore provides read access to the legal document graph.
// The store is shared across concurrent requests and must be safe for
// concurrent use. Implementations include an in-memory graph, SQLite and Neo4j.
type GraphStore interface {
	// SearchCandidates matches query case-insensitively against Work titles
	// and Article titles/numbers. Results are scored exact(3) > prefix(2) >
	// substring(1) and ordered by score desc, title asc, id asc.
	SearchCandidates(ctx context.Context, query string, filter domain.CandidateFilter, limit int) ([]domain.CandidateItem, error)

	// ExpressionsValidAt returns every expression owning the referenced
	// component whose interval contains date. More than one result means
	// the non-overlap invariant is broken; callers decide what to do.
	ExpressionsValidAt(ctx context.Context, ref domain.Reference, date time.Time) ([]domain.Expression, error)

	// NearestParagraphs returns the k paragraphs closest to embedding across
	// the whole store, each tagged with its owning expression.
	NearestParagraphs(ctx context.Context, embedding []float32, k int) ([]ParagraphHit, error)

	// KeywordParagraphs returns paragraph ids of the expression whose text
	// contains query (case-insensitive), ordered by paragraph id, capped to limit.
	KeywordParagraphs(ctx context.Context, expressionID, query string, limit int) ([]string, error)

	// HydrateParagraphs loads paragraphs with article and manifestation
	// provenance. Missing ids are skipped; order follows ids.
	HydrateParagraphs(ctx context.Context, expressionID string, ids []string) ([]domain.RetrievedParagraph, error)

	// VectorDimensions returns the configured paragraph index size,
	// or 0 if the store has no vector index yet.
	VectorDimensions(ctx context.Context) (int, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ParagraphHit is one similarity search result.
type ParagraphHit struct {
	ParagraphID  string
	ExpressionID string
	Score        float64
}

// GraphLoader writes a complete graph into a store. It is used by seeding
// and tests only; the answering core never writes.
type GraphLoader interface {
	LoadGraph(ctx context.Context, g *domain.Graph) error
}
