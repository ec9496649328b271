package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/domain/domaintest"
)

func loadedStore(t *testing.T) *GraphStore {
	t.Helper()
	store := NewGraphStore(domaintest.Dimensions)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))
	return store
}

func TestGraphStore_LoadGraph_RejectsOverlap(t *testing.T) {
	store := NewGraphStore(domaintest.Dimensions)
	err := store.LoadGraph(context.Background(), domaintest.Overlapping())
	assert.ErrorIs(t, err, domain.ErrAmbiguous)
}

func TestGraphStore_LoadGraph_DimensionMismatch(t *testing.T) {
	store := NewGraphStore(3)
	err := store.LoadGraph(context.Background(), domaintest.Graph())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGraphStore_VectorDimensions_FromData(t *testing.T) {
	store := NewGraphStore(0)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))

	dims, err := store.VectorDimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domaintest.Dimensions, dims)
}

func TestGraphStore_SearchCandidates(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	t.Run("work title exact", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "Markets in Crypto-Assets Regulation", domain.CandidateFilter{}, 5)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.Reference{Kind: domain.KindWork, ID: "mica"}, items[0].Reference)
		assert.Equal(t, domain.MatchExact, items[0].Score)
	})

	t.Run("article title prefix ordered by title then id", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{}, 5)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "mica-2024-A59", items[0].Reference.ID)
		assert.Equal(t, "mica-2023-A16", items[1].Reference.ID)
		assert.Equal(t, "mica-2024-A16", items[2].Reference.ID)
		for _, it := range items {
			assert.Equal(t, domain.MatchPrefix, it.Score)
			assert.Equal(t, domain.KindArticle, it.Reference.Kind)
		}
	})

	t.Run("article number", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "16", domain.CandidateFilter{}, 5)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, domain.MatchSubstring, items[0].Score)
		assert.Equal(t, "Authorisation of issuers", items[0].Title)
	})

	t.Run("limit", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{}, 1)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("filters", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{Jurisdiction: "US"}, 5)
		require.NoError(t, err)
		assert.Empty(t, items)

		level := 2
		items, err = store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{AuthorityLevel: &level}, 5)
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = store.SearchCandidates(ctx, "a", domain.CandidateFilter{WorkID: "dora"}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, items)
		for _, it := range items {
			assert.NotContains(t, it.Reference.ID, "mica")
		}
	})

	t.Run("empty query", func(t *testing.T) {
		items, err := store.SearchCandidates(ctx, "  ", domain.CandidateFilter{}, 5)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestGraphStore_ExpressionsValidAt(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  domain.Reference
		date string
		want []string
	}{
		{"work before amendment", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2024-06-01", []string{"mica-2023"}},
		{"work on last day", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2024-12-29", []string{"mica-2023"}},
		{"work on amendment day", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2024-12-30", []string{"mica-2024"}},
		{"work before entry into force", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2023-01-01", []string{}},
		{"expression", domain.Reference{Kind: domain.KindExpression, ID: "dora-2023"}, "2030-01-01", []string{"dora-2023"}},
		{"article", domain.Reference{Kind: domain.KindArticle, ID: "mica-2024-A59"}, "2025-03-01", []string{"mica-2024"}},
		{"article outside interval", domain.Reference{Kind: domain.KindArticle, ID: "mica-2024-A59"}, "2024-01-01", []string{}},
		{"paragraph", domain.Reference{Kind: domain.KindParagraph, ID: "mica-2023-A16-P2"}, "2024-01-01", []string{"mica-2023"}},
		{"unknown id", domain.Reference{Kind: domain.KindWork, ID: "nope"}, "2024-01-01", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exprs, err := store.ExpressionsValidAt(ctx, tt.ref, domaintest.Date(tt.date))
			require.NoError(t, err)
			ids := []string{}
			for _, e := range exprs {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGraphStore_ExpressionsValidAt_Overlap(t *testing.T) {
	store := NewGraphStore(domaintest.Dimensions)
	require.NoError(t, store.load(domaintest.Overlapping()))

	exprs, err := store.ExpressionsValidAt(context.Background(),
		domain.Reference{Kind: domain.KindWork, ID: "mica"}, domaintest.Date("2025-02-01"))
	require.NoError(t, err)
	assert.Len(t, exprs, 2)
}

func TestGraphStore_NearestParagraphs(t *testing.T) {
	store := loadedStore(t)

	hits, err := store.NearestParagraphs(context.Background(), []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "mica-2023-A16-P1", hits[0].ParagraphID)
	assert.Equal(t, "mica-2023", hits[0].ExpressionID)
	assert.Equal(t, "mica-2024-A16-P1", hits[1].ParagraphID)
	assert.Equal(t, "mica-2024-A16-P2", hits[2].ParagraphID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Greater(t, hits[1].Score, hits[2].Score)

	_, err = store.NearestParagraphs(context.Background(), []float32{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestGraphStore_KeywordParagraphs(t *testing.T) {
	store := loadedStore(t)

	ids, err := store.KeywordParagraphs(context.Background(), "mica-2024", "AUTHORISED", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"mica-2024-A16-P1", "mica-2024-A59-P1"}, ids)

	ids, err = store.KeywordParagraphs(context.Background(), "mica-2024", "authorised", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mica-2024-A16-P1"}, ids)
}

func TestGraphStore_HydrateParagraphs(t *testing.T) {
	store := loadedStore(t)

	ps, err := store.HydrateParagraphs(context.Background(), "mica-2024",
		[]string{"mica-2024-A59-P1", "missing", "mica-2023-A16-P1", "mica-2024-A16-P1"})
	require.NoError(t, err)
	require.Len(t, ps, 2)

	first := ps[0]
	assert.Equal(t, "mica-2024-A59-P1", first.ParagraphID)
	assert.Equal(t, "mica-2024", first.ExpressionID)
	assert.Equal(t, "59", first.ArticleNumber)
	assert.Equal(t, "Authorisation of crypto-asset service providers", first.ArticleTitle)
	assert.Equal(t, "sha256:new", first.FileHash)
	assert.Equal(t, "2025-01-15", first.PublishedDate)
	assert.Equal(t, "application/pdf", first.ContentType)
	assert.Equal(t, "mica-2024-A16-P1", ps[1].ParagraphID)

	ps, err = store.HydrateParagraphs(context.Background(), "dora-2023", []string{"dora-2023-A5-P1"})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Empty(t, ps[0].SourceURL)
	assert.Empty(t, ps[0].PublishedDate)
}

func TestGraphStore_ConcurrentReads(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{}, 5)
			_, _ = store.NearestParagraphs(ctx, []float32{0, 0, 1, 0}, 2)
		}()
	}
	wg.Wait()
}
