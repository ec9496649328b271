package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func TestDecodeFile(t *testing.T) {
	g, err := DecodeFile("testdata/graph.toml")
	require.NoError(t, err)

	require.Len(t, g.Works, 1)
	assert.Equal(t, 1, g.Works[0].AuthorityLevel)

	require.Len(t, g.Expressions, 2)
	assert.Equal(t, "mica", g.Expressions[0].WorkID)
	require.NotNil(t, g.Expressions[0].ValidTo)
	assert.Equal(t, "2024-12-29", g.Expressions[0].ValidTo.Format(domain.DateLayout))
	assert.Nil(t, g.Expressions[1].ValidTo)

	require.Len(t, g.Manifestations, 1)
	assert.Equal(t, "mica-2023-M1", g.Manifestations[0].ID)
	require.NotNil(t, g.Manifestations[0].PublishedDate)

	require.Len(t, g.Articles, 2)
	assert.Equal(t, "mica-2023-A16", g.Articles[0].ID)
	assert.Equal(t, "custom-article", g.Articles[1].ID)

	require.Len(t, g.Paragraphs, 2)
	assert.Equal(t, "mica-2023-A16-P1", g.Paragraphs[0].ID)
	assert.Equal(t, "Issuers of asset-referenced tokens shall be authorised.", g.Paragraphs[0].Text)
	assert.Equal(t, []float32{1, 0, 0, 0}, g.Paragraphs[0].Embedding)
	assert.Equal(t, "custom-paragraph", g.Paragraphs[1].ID)
	assert.Equal(t, "custom-article", g.Paragraphs[1].ArticleID)
	assert.Empty(t, g.Paragraphs[1].Embedding)

	assert.NoError(t, g.Validate())
}

func TestDecodeFile_Missing(t *testing.T) {
	_, err := DecodeFile("testdata/missing.toml")
	assert.Error(t, err)
}

func TestDecode_BadDate(t *testing.T) {
	doc := `
[[works]]
id = "w"
  [[works.expressions]]
  id = "e"
  valid_from = "30/12/2024"
`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecode_UnknownField(t *testing.T) {
	doc := `
[[works]]
id = "w"
colour = "blue"
`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDefault(t *testing.T) {
	g, err := Default()
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.NotEmpty(t, g.Works)
	assert.NotEmpty(t, g.Paragraphs)
	for _, p := range g.Paragraphs {
		assert.NotEmpty(t, p.Text, p.ID)
	}
}

func TestEmbedMissing(t *testing.T) {
	g, err := DecodeFile("testdata/graph.toml")
	require.NoError(t, err)
	embedder, err := hash.NewEmbeddingService(4)
	require.NoError(t, err)

	require.NoError(t, EmbedMissing(context.Background(), g, embedder))

	assert.Equal(t, []float32{1, 0, 0, 0}, g.Paragraphs[0].Embedding, "existing vectors are kept")
	assert.Len(t, g.Paragraphs[1].Embedding, 4)
}

func TestEmbedMissing_NilEmbedder(t *testing.T) {
	g, err := DecodeFile("testdata/graph.toml")
	require.NoError(t, err)

	require.NoError(t, EmbedMissing(context.Background(), g, nil))
	assert.Empty(t, g.Paragraphs[1].Embedding)
}

func TestLoad_IntoMemoryStore(t *testing.T) {
	ctx := context.Background()
	g, err := Default()
	require.NoError(t, err)
	embedder, err := hash.NewEmbeddingService(64)
	require.NoError(t, err)
	store := memory.NewGraphStore(64)

	require.NoError(t, Load(ctx, g, embedder, store))

	dims, err := store.VectorDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, dims)

	query, err := embedder.Embed(ctx, "crypto-asset service providers authorisation")
	require.NoError(t, err)
	hits, err := store.NearestParagraphs(ctx, query, 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	ids, err := store.KeywordParagraphs(ctx, "dora-2023", "ict", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}
