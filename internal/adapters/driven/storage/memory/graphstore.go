package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure GraphStore implements the interfaces.
var (
	_ driven.GraphStore  = (*GraphStore)(nil)
	_ driven.GraphLoader = (*GraphStore)(nil)
)

// GraphStore is an in-memory implementation of driven.GraphStore.
// Similarity search is a brute-force cosine scan.
type GraphStore struct {
	mu             sync.RWMutex
	dims           int
	works          map[string]domain.Work
	expressions    map[string]domain.Expression
	manifestations map[string][]domain.Manifestation
	articles       map[string]domain.Article
	paragraphs     map[string]domain.Paragraph
}

// NewGraphStore creates an empty graph store. dims is the vector index size;
// zero means it is taken from the first loaded embedding.
func NewGraphStore(dims int) *GraphStore {
	s := &GraphStore{dims: dims}
	s.reset()
	return s
}

func (s *GraphStore) reset() {
	s.works = make(map[string]domain.Work)
	s.expressions = make(map[string]domain.Expression)
	s.manifestations = make(map[string][]domain.Manifestation)
	s.articles = make(map[string]domain.Article)
	s.paragraphs = make(map[string]domain.Paragraph)
}

// LoadGraph validates g and replaces the store contents with it.
func (s *GraphStore) LoadGraph(_ context.Context, g *domain.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return s.load(g)
}

// load replaces the contents without checking the non-overlap invariant.
func (s *GraphStore) load(g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	for _, p := range g.Paragraphs {
		if len(p.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(p.Embedding)
		}
		if len(p.Embedding) != dims {
			return fmt.Errorf("%w: paragraph %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Embedding), dims)
		}
	}

	s.reset()
	s.dims = dims
	for _, w := range g.Works {
		s.works[w.ID] = w
	}
	for _, e := range g.Expressions {
		s.expressions[e.ID] = e
	}
	for _, m := range g.Manifestations {
		s.manifestations[m.ExpressionID] = append(s.manifestations[m.ExpressionID], m)
	}
	for _, a := range g.Articles {
		s.articles[a.ID] = a
	}
	for _, p := range g.Paragraphs {
		s.paragraphs[p.ID] = p
	}
	return nil
}

// SearchCandidates matches works by title and articles by title or number.
func (s *GraphStore) SearchCandidates(
	_ context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit < 1 {
		return []domain.CandidateItem{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []domain.CandidateItem
	for _, w := range s.works {
		if !matchesFilter(w, filter) {
			continue
		}
		if score := domain.MatchScore(w.Title, query); score > 0 {
			items = append(items, domain.CandidateItem{
				Reference: domain.Reference{Kind: domain.KindWork, ID: w.ID},
				Title:     w.Title,
				Score:     score,
			})
		}
	}

	for _, a := range s.articles {
		e, ok := s.expressions[a.ExpressionID]
		if !ok {
			continue
		}
		if w, ok := s.works[e.WorkID]; !ok || !matchesFilter(w, filter) {
			continue
		}
		title := a.Title
		if title == "" {
			title = a.Number
		}
		if !strings.Contains(strings.ToLower(title), query) && !strings.Contains(strings.ToLower(a.Number), query) {
			continue
		}
		score := domain.MatchScore(title, query)
		if score == 0 {
			score = domain.MatchSubstring
		}
		items = append(items, domain.CandidateItem{
			Reference: domain.Reference{Kind: domain.KindArticle, ID: a.ID},
			Title:     title,
			Score:     score,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].Reference.ID < items[j].Reference.ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []domain.CandidateItem{}
	}
	return items, nil
}

func matchesFilter(w domain.Work, f domain.CandidateFilter) bool {
	if f.Jurisdiction != "" && w.Jurisdiction != f.Jurisdiction {
		return false
	}
	if f.AuthorityLevel != nil && w.AuthorityLevel != *f.AuthorityLevel {
		return false
	}
	if f.WorkID != "" && w.ID != f.WorkID {
		return false
	}
	return true
}

// ExpressionsValidAt walks from the referenced component to its owning
// expressions and keeps those covering date.
func (s *GraphStore) ExpressionsValidAt(
	_ context.Context, ref domain.Reference, date time.Time,
) ([]domain.Expression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners []domain.Expression
	switch ref.Kind {
	case domain.KindWork:
		for _, e := range s.expressions {
			if e.WorkID == ref.ID {
				owners = append(owners, e)
			}
		}
	case domain.KindExpression:
		if e, ok := s.expressions[ref.ID]; ok {
			owners = append(owners, e)
		}
	case domain.KindArticle:
		if a, ok := s.articles[ref.ID]; ok {
			if e, ok := s.expressions[a.ExpressionID]; ok {
				owners = append(owners, e)
			}
		}
	case domain.KindParagraph:
		if p, ok := s.paragraphs[ref.ID]; ok {
			if a, ok := s.articles[p.ArticleID]; ok {
				if e, ok := s.expressions[a.ExpressionID]; ok {
					owners = append(owners, e)
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: component kind %q", domain.ErrInvalidInput, ref.Kind)
	}

	valid := make([]domain.Expression, 0, len(owners))
	for _, e := range owners {
		if e.Covers(date) {
			valid = append(valid, e)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })
	return valid, nil
}

// NearestParagraphs scans every embedded paragraph.
func (s *GraphStore) NearestParagraphs(_ context.Context, embedding []float32, k int) ([]driven.ParagraphHit, error) {
	if k < 1 {
		return []driven.ParagraphHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims > 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(embedding), s.dims)
	}

	hits := make([]driven.ParagraphHit, 0, len(s.paragraphs))
	for _, p := range s.paragraphs {
		if len(p.Embedding) == 0 {
			continue
		}
		a, ok := s.articles[p.ArticleID]
		if !ok {
			continue
		}
		hits = append(hits, driven.ParagraphHit{
			ParagraphID:  p.ID,
			ExpressionID: a.ExpressionID,
			Score:        domain.CosineSimilarity(embedding, p.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ParagraphID < hits[j].ParagraphID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// KeywordParagraphs returns ids of paragraphs of the expression containing query.
func (s *GraphStore) KeywordParagraphs(
	_ context.Context, expressionID, query string, limit int,
) ([]string, error) {
	query = strings.ToLower(query)
	if query == "" || limit < 1 {
		return []string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for _, p := range s.paragraphs {
		a, ok := s.articles[p.ArticleID]
		if !ok || a.ExpressionID != expressionID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Text), query) {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// HydrateParagraphs loads paragraphs of the expression in ids order.
func (s *GraphStore) HydrateParagraphs(
	_ context.Context, expressionID string, ids []string,
) ([]domain.RetrievedParagraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := domain.LatestManifestation(s.manifestations[expressionID])

	out := make([]domain.RetrievedParagraph, 0, len(ids))
	for _, id := range ids {
		p, ok := s.paragraphs[id]
		if !ok {
			continue
		}
		a, ok := s.articles[p.ArticleID]
		if !ok || a.ExpressionID != expressionID {
			continue
		}
		rp := domain.RetrievedParagraph{
			ExpressionID:    expressionID,
			ParagraphID:     p.ID,
			ParagraphNumber: p.Number,
			Text:            p.Text,
			ArticleID:       a.ID,
			ArticleNumber:   a.Number,
			ArticleTitle:    a.Title,
		}
		if latest != nil {
			rp.SourceURL = latest.SourceURL
			rp.ContentType = latest.ContentType
			rp.FileHash = latest.FileHash
			if latest.PublishedDate != nil {
				rp.PublishedDate = latest.PublishedDate.Format(domain.DateLayout)
			}
		}
		out = append(out, rp)
	}
	return out, nil
}

// VectorDimensions returns the index size.
func (s *GraphStore) VectorDimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims, nil
}

// Ping always succeeds.
func (s *GraphStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *GraphStore) Close() error {
	return nil
}
