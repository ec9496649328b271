package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func memorySettings() domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding.Dimensions = 64
	s.VectorIndex.Dimensions = 64
	return s
}

func TestBuild_MemorySeedsBuiltInGraph(t *testing.T) {
	ctx := context.Background()
	rt, err := Build(ctx, memorySettings(), nil)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Embedder())
	assert.Nil(t, rt.AI.LLMService)

	v, err := rt.Actions.GetValidVersion(ctx, "work:mica", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "mica-2024", v.ExpressionID)

	hits, err := rt.Actions.SearchTextUnits(ctx, "mica-2024", "registered office of crypto-asset service providers", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
	assert.Equal(t, domain.RetrievalVector, hits[0].RetrievalMode)
	assert.Equal(t, "mica-2024-A59-P2", hits[0].ParagraphID)
}

func TestBuild_NoLLMIsInsufficient(t *testing.T) {
	ctx := context.Background()
	rt, err := Build(ctx, memorySettings(), nil)
	require.NoError(t, err)
	defer rt.Close()

	ans, err := rt.Answers.Answer(ctx, domain.AnswerRequest{
		Question: "What must issuers publish?",
		AsOfDate: "2025-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InsufficientMessage, ans.Answer)
	assert.Empty(t, ans.Citations)
}

func TestBuild_RegistersMetrics(t *testing.T) {
	rt, err := Build(context.Background(), memorySettings(), nil)
	require.NoError(t, err)
	defer rt.Close()

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuild_InvalidSettings(t *testing.T) {
	s := memorySettings()
	s.Retrieval.TopK = 0

	_, err := Build(context.Background(), s, nil)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	s := memorySettings()
	s.Embedding.Dimensions = 32

	_, err := Build(context.Background(), s, nil)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestOpenStore_SQLite(t *testing.T) {
	s := memorySettings()
	s.Store.Backend = domain.StoreSQLite
	s.Store.Path = t.TempDir()

	store, err := OpenStore(context.Background(), s)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	s := memorySettings()
	s.Store.Backend = "cassandra"

	_, err := OpenStore(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOpenStore_Neo4jRequiresURI(t *testing.T) {
	s := memorySettings()
	s.Store.Backend = domain.StoreNeo4j
	s.Neo4j.URI = ""

	_, err := OpenStore(context.Background(), s)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestScorerFor(t *testing.T) {
	s := memorySettings()
	s.Guardrail.Scorer = domain.ScorerLLMJudge

	scorer := scorerFor(s, nil, nil, time.Second)
	score, err := scorer.Score(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}
