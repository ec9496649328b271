package services

import (
	"context"
	"sort"
	"strings"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// vectorOverfetch compensates for post-filtering a system-wide index down to
// a single expression.
const vectorOverfetch = 3

// scoredParagraph holds intermediate retrieval results before hydration.
type scoredParagraph struct {
	paragraphID string
	score       float64
	mode        domain.RetrievalMode
}

// RetrieveParagraphs returns up to topK paragraphs of the expression for
// query. Vector hits come first (score desc, id asc); a keyword pass fills
// the remainder without duplicates. Retrieval never fails: store or
// embedding errors are logged and yield fewer results.
func (r *Repository) RetrieveParagraphs(
	ctx context.Context, expressionID, query string, topK int,
) []domain.RetrievedParagraph {
	logger.Section("Retrieve Paragraphs")
	logger.Debug("Expression: %s, query: %q, top_k: %d", expressionID, query, topK)

	query = strings.TrimSpace(query)
	if query == "" || expressionID == "" {
		logger.Debug("Empty query, returning no paragraphs")
		return []domain.RetrievedParagraph{}
	}
	if topK < 1 {
		topK = 1
	}

	results := r.vectorPass(ctx, expressionID, query, topK)
	logger.Debug("Vector pass: %d paragraphs", len(results))

	if len(results) < topK {
		results = r.keywordPass(ctx, expressionID, query, topK, results)
		logger.Debug("After keyword fallback: %d paragraphs", len(results))
	}

	return r.hydrate(ctx, expressionID, results)
}

// vectorPass queries the similarity index and keeps hits owned by the expression.
func (r *Repository) vectorPass(ctx context.Context, expressionID, query string, topK int) []scoredParagraph {
	if r.embeddingService == nil {
		logger.Debug("No embedding service, skipping vector pass")
		return nil
	}

	embedding, err := r.embeddingService.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed, using keyword retrieval only: %v", err)
		return nil
	}

	hits, err := storeCall(ctx, r, "nearest paragraphs", func(ctx context.Context) ([]driven.ParagraphHit, error) {
		return r.store.NearestParagraphs(ctx, embedding, topK*vectorOverfetch)
	})
	if err != nil {
		logger.Warn("Vector search failed, using keyword retrieval only: %v", err)
		return nil
	}

	owned := make([]driven.ParagraphHit, 0, len(hits))
	for _, h := range hits {
		if h.ExpressionID == expressionID {
			owned = append(owned, h)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Score != owned[j].Score {
			return owned[i].Score > owned[j].Score
		}
		return owned[i].ParagraphID < owned[j].ParagraphID
	})
	if len(owned) > topK {
		owned = owned[:topK]
	}

	results := make([]scoredParagraph, 0, len(owned))
	for _, h := range owned {
		results = append(results, scoredParagraph{
			paragraphID: h.ParagraphID,
			score:       h.Score,
			mode:        domain.RetrievalVector,
		})
	}
	return results
}

// keywordPass appends substring matches not already present until topK is reached.
func (r *Repository) keywordPass(
	ctx context.Context, expressionID, query string, topK int, results []scoredParagraph,
) []scoredParagraph {
	ids, err := storeCall(ctx, r, "keyword paragraphs", func(ctx context.Context) ([]string, error) {
		return r.store.KeywordParagraphs(ctx, expressionID, strings.ToLower(query), topK)
	})
	if err != nil {
		logger.Warn("Keyword search failed: %v", err)
		return results
	}

	seen := make(map[string]bool, len(results))
	for _, p := range results {
		seen[p.paragraphID] = true
	}

	for _, id := range ids {
		if len(results) >= topK {
			break
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, scoredParagraph{
			paragraphID: id,
			score:       0,
			mode:        domain.RetrievalKeyword,
		})
	}
	return results
}

// hydrate attaches text and provenance, preserving the fused order.
func (r *Repository) hydrate(
	ctx context.Context, expressionID string, scored []scoredParagraph,
) []domain.RetrievedParagraph {
	if len(scored) == 0 {
		return []domain.RetrievedParagraph{}
	}

	ids := make([]string, 0, len(scored))
	for _, p := range scored {
		ids = append(ids, p.paragraphID)
	}

	paragraphs, err := storeCall(ctx, r, "hydrate paragraphs", func(ctx context.Context) ([]domain.RetrievedParagraph, error) {
		return r.store.HydrateParagraphs(ctx, expressionID, ids)
	})
	if err != nil {
		logger.Warn("Failed to load paragraphs: %v", err)
		return []domain.RetrievedParagraph{}
	}

	byID := make(map[string]domain.RetrievedParagraph, len(paragraphs))
	for _, p := range paragraphs {
		byID[p.ParagraphID] = p
	}

	results := make([]domain.RetrievedParagraph, 0, len(scored))
	for _, s := range scored {
		p, ok := byID[s.paragraphID]
		if !ok {
			logger.Debug("Paragraph %s vanished during hydration", s.paragraphID)
			continue
		}
		p.ExpressionID = expressionID
		p.Score = s.score
		p.RetrievalMode = s.mode
		results = append(results, p)
	}
	return results
}
