package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Repository answers temporal questions about the legal document graph:
// which items match a query, which version of an item is in force on a date
// and which paragraphs of that version are relevant.
type Repository struct {
	store            driven.GraphStore
	embeddingService driven.EmbeddingService
	queryTimeout     time.Duration
}

// NewRepository creates a repository over store.
// The embeddingService parameter is optional (can be nil); without it
// paragraph retrieval is keyword-only.
func NewRepository(store driven.GraphStore, embeddingService driven.EmbeddingService) *Repository {
	return &Repository{
		store:            store,
		embeddingService: embeddingService,
		queryTimeout:     DefaultQueryTimeout,
	}
}

// SetQueryTimeout bounds every store call. Non-positive values are ignored.
func (r *Repository) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		r.queryTimeout = d
	}
}

// storeCall runs fn under the per-query deadline. A deadline that fires
// while the caller's context is still live is reported as ErrQueryTimeout,
// so callers degrade exactly as for any other transient store failure.
func storeCall[T any](ctx context.Context, r *Repository, op string, fn func(context.Context) (T, error)) (T, error) {
	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	out, err := fn(qctx)
	if err != nil && ctx.Err() == nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
		logger.Warn("%s exceeded %s", op, r.queryTimeout)
		var zero T
		return zero, fmt.Errorf("%s after %s: %w", op, r.queryTimeout, domain.ErrQueryTimeout)
	}
	return out, err
}

// FindCandidateItems returns works and articles whose title (or article
// number) contains query, best matches first.
func (r *Repository) FindCandidateItems(
	ctx context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []domain.CandidateItem{}, nil
	}
	if limit < 1 {
		limit = 1
	}

	items, err := storeCall(ctx, r, "search candidates", func(ctx context.Context) ([]domain.CandidateItem, error) {
		return r.store.SearchCandidates(ctx, query, filter, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	logger.Debug("Candidate items for %q: %d", query, len(items))
	return items, nil
}

// ResolveValidVersion returns the single expression owning ref whose
// validity interval contains date.
//
// Every component kind funnels into the same containment check; only the
// traversal to the owning expression differs, and that lives in the store.
// Zero matches is ErrNotFound; more than one is ErrAmbiguous.
func (r *Repository) ResolveValidVersion(
	ctx context.Context, ref domain.Reference, date time.Time,
) (*domain.ResolvedVersion, error) {
	if !ref.Kind.IsValid() || ref.ID == "" {
		return nil, fmt.Errorf("%w: reference %q", domain.ErrInvalidInput, ref.String())
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: missing target date", domain.ErrInvalidInput)
	}
	date = domain.TruncateDate(date)

	exprs, err := storeCall(ctx, r, "expressions valid at", func(ctx context.Context) ([]domain.Expression, error) {
		return r.store.ExpressionsValidAt(ctx, ref, date)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	switch len(exprs) {
	case 0:
		return nil, fmt.Errorf("%w: no expression of %s in force on %s",
			domain.ErrNotFound, ref, date.Format(domain.DateLayout))
	case 1:
		e := exprs[0]
		logger.Debug("Resolved %s at %s to %s", ref, date.Format(domain.DateLayout), e.ID)
		return &domain.ResolvedVersion{
			ExpressionID: e.ID,
			WorkID:       e.WorkID,
			ValidFrom:    e.ValidFrom,
			ValidTo:      e.ValidTo,
		}, nil
	default:
		ids := make([]string, 0, len(exprs))
		for _, e := range exprs {
			ids = append(ids, e.ID)
		}
		logger.Warn("Overlapping expressions for %s on %s: %v", ref, date.Format(domain.DateLayout), ids)
		return nil, fmt.Errorf("%w: %d expressions of %s in force on %s",
			domain.ErrAmbiguous, len(exprs), ref, date.Format(domain.DateLayout))
	}
}
