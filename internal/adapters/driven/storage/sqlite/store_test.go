package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/domain/domaintest"
)

// setupTestStore creates a SQLite store in a temp directory.
func setupTestStore(t *testing.T, dims int) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir, dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	store, _ := setupTestStore(t, domaintest.Dimensions)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))
	return store
}

func TestNewStore_RunsMigrationsOnce(t *testing.T) {
	store, dir := setupTestStore(t, 0)
	require.NoError(t, store.Ping(context.Background()))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, 0)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestNewStore_RecordsDimensions(t *testing.T) {
	store, dir := setupTestStore(t, 0)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, 0)
	require.NoError(t, err)
	dims, err := reopened.VectorDimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domaintest.Dimensions, dims)
	require.NoError(t, reopened.Close())

	_, err = NewStore(dir, 768)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestLoadGraph_Validation(t *testing.T) {
	store, _ := setupTestStore(t, 0)
	err := store.LoadGraph(context.Background(), domaintest.Overlapping())
	assert.ErrorIs(t, err, domain.ErrAmbiguous)

	fixed, _ := setupTestStore(t, 3)
	err = fixed.LoadGraph(context.Background(), domaintest.Graph())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestLoadGraph_Replaces(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	g := domaintest.Graph()
	g.Works = g.Works[1:] // dora only
	g.Expressions = []domain.Expression{g.Expressions[2]}
	g.Manifestations = nil
	g.Articles = []domain.Article{g.Articles[3]}
	g.Paragraphs = []domain.Paragraph{g.Paragraphs[5]}
	require.NoError(t, store.LoadGraph(ctx, g))

	items, err := store.SearchCandidates(ctx, "markets", domain.CandidateFilter{}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchCandidates(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	items, err := store.SearchCandidates(ctx, "Markets in Crypto-Assets Regulation", domain.CandidateFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.Reference{Kind: domain.KindWork, ID: "mica"}, items[0].Reference)
	assert.Equal(t, domain.MatchExact, items[0].Score)

	items, err = store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{}, 5)
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Reference.ID)
	}
	assert.Equal(t, []string{"mica-2024-A59", "mica-2023-A16", "mica-2024-A16"}, ids)

	items, err = store.SearchCandidates(ctx, "16", domain.CandidateFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.MatchSubstring, items[0].Score)

	level := 2
	items, err = store.SearchCandidates(ctx, "authorisation", domain.CandidateFilter{AuthorityLevel: &level}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = store.SearchCandidates(ctx, "act", domain.CandidateFilter{Jurisdiction: "EU", WorkID: "dora"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dora", items[0].Reference.ID)
}

func TestExpressionsValidAt(t *testing.T) {
	store := loadedStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  domain.Reference
		date string
		want []string
	}{
		{"work on last day", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2024-12-29", []string{"mica-2023"}},
		{"work on amendment day", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2024-12-30", []string{"mica-2024"}},
		{"open ended", domain.Reference{Kind: domain.KindExpression, ID: "dora-2023"}, "2030-01-01", []string{"dora-2023"}},
		{"article", domain.Reference{Kind: domain.KindArticle, ID: "mica-2024-A59"}, "2025-03-01", []string{"mica-2024"}},
		{"paragraph", domain.Reference{Kind: domain.KindParagraph, ID: "mica-2023-A16-P2"}, "2024-01-01", []string{"mica-2023"}},
		{"before entry into force", domain.Reference{Kind: domain.KindWork, ID: "mica"}, "2023-01-01", []string{}},
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

	exprs, err := store.ExpressionsValidAt(ctx, domain.Reference{Kind: domain.KindWork, ID: "mica"}, domaintest.Date("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	assert.Equal(t, domaintest.Date("2023-06-09"), exprs[0].ValidFrom)
	assert.Equal(t, domaintest.DatePtr("2024-12-29"), exprs[0].ValidTo)

	_, err = store.ExpressionsValidAt(ctx, domain.Reference{Kind: "chapter", ID: "x"}, domaintest.Date("2024-01-01"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNearestParagraphs(t *testing.T) {
	store := loadedStore(t)

	hits, err := store.NearestParagraphs(context.Background(), []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "mica-2023-A16-P1", hits[0].ParagraphID)
	assert.Equal(t, "mica-2023", hits[0].ExpressionID)
	assert.Equal(t, "mica-2024-A16-P1", hits[1].ParagraphID)
	assert.Equal(t, "mica-2024-A16-P2", hits[2].ParagraphID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	_, err = store.NearestParagraphs(context.Background(), []float32{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestKeywordParagraphs(t *testing.T) {
	store := loadedStore(t)

	ids, err := store.KeywordParagraphs(context.Background(), "mica-2024", "AUTHORISED", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"mica-2024-A16-P1", "mica-2024-A59-P1"}, ids)

	ids, err = store.KeywordParagraphs(context.Background(), "mica-2024", "authorised", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mica-2024-A16-P1"}, ids)
}

func TestHydrateParagraphs(t *testing.T) {
	store := loadedStore(t)

	ps, err := store.HydrateParagraphs(context.Background(), "mica-2024",
		[]string{"mica-2024-A59-P1", "missing", "mica-2023-A16-P1", "mica-2024-A16-P1"})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "mica-2024-A59-P1", ps[0].ParagraphID)
	assert.Equal(t, "59", ps[0].ArticleNumber)
	assert.Equal(t, "sha256:new", ps[0].FileHash)
	assert.Equal(t, "2025-01-15", ps[0].PublishedDate)
	assert.Equal(t, "mica-2024-A16-P1", ps[1].ParagraphID)

	ps, err = store.HydrateParagraphs(context.Background(), "dora-2023", []string{"dora-2023-A5-P1"})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Empty(t, ps[0].SourceURL)
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
