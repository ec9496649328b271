package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// Ensure ActionsService implements the interface.
var _ driving.ActionsService = (*ActionsService)(nil)

// ActionsService exposes the repository building blocks one at a time,
// validating caller bounds that the orchestrator would otherwise clamp.
type ActionsService struct {
	repo *Repository
	now  func() time.Time
}

// NewActionsService creates an actions service over repo.
func NewActionsService(repo *Repository) *ActionsService {
	return &ActionsService{repo: repo, now: time.Now}
}

// SearchItems finds candidate works and articles. limit must be within
// 1..domain.MaxSearchLimit.
func (s *ActionsService) SearchItems(
	ctx context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	if limit < 1 || limit > domain.MaxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, domain.MaxSearchLimit)
	}
	return s.repo.FindCandidateItems(ctx, query, filter, limit)
}

// ResolveTemporalScope parses expr relative to today.
func (s *ActionsService) ResolveTemporalScope(expr string) (domain.TemporalScope, error) {
	return domain.ParseTemporalScope(expr, s.now())
}

// GetValidVersion parses reference and resolves the expression in force on date.
func (s *ActionsService) GetValidVersion(
	ctx context.Context, reference string, date time.Time,
) (*domain.ResolvedVersion, error) {
	ref, err := domain.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	return s.repo.ResolveValidVersion(ctx, ref, date)
}

// SearchTextUnits retrieves paragraphs of one expression. topK must be
// within 1..domain.MaxTopK.
func (s *ActionsService) SearchTextUnits(
	ctx context.Context, expressionID, query string, topK int,
) ([]domain.RetrievedParagraph, error) {
	if strings.TrimSpace(expressionID) == "" {
		return nil, fmt.Errorf("%w: expression_id is required", domain.ErrInvalidInput)
	}
	if topK < 1 || topK > domain.MaxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d", domain.ErrInvalidInput, domain.MaxTopK)
	}
	return s.repo.RetrieveParagraphs(ctx, expressionID, query, topK), nil
}
