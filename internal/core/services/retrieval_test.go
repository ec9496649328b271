package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/domain/domaintest"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

type fused struct {
	ID   string
	Mode domain.RetrievalMode
}

func project(ps []domain.RetrievedParagraph) []fused {
	out := make([]fused, 0, len(ps))
	for _, p := range ps {
		out = append(out, fused{ID: p.ParagraphID, Mode: p.RetrievalMode})
	}
	return out
}

// sixParagraphs is a single expression with paragraphs P1..P6.
func sixParagraphs(t *testing.T) *memory.GraphStore {
	t.Helper()
	g := &domain.Graph{
		Works:       []domain.Work{{ID: "w", Title: "Work", Jurisdiction: "EU"}},
		Expressions: []domain.Expression{{ID: "e", WorkID: "w", ValidFrom: domaintest.Date("2020-01-01")}},
		Articles:    []domain.Article{{ID: "e-A1", ExpressionID: "e", Number: "1"}},
	}
	for _, n := range []string{"1", "2", "3", "4", "5", "6"} {
		g.Paragraphs = append(g.Paragraphs, domain.Paragraph{
			ID: domain.ParagraphID("e-A1", n), ArticleID: "e-A1", Number: n, Text: "rule " + n,
		})
	}
	store := memory.NewGraphStore(0)
	require.NoError(t, store.LoadGraph(context.Background(), g))
	return store
}

func TestRetrieveParagraphs_Fusion(t *testing.T) {
	store := &fakeGraph{
		GraphStore: sixParagraphs(t),
		nearest: []driven.ParagraphHit{
			{ParagraphID: "other-P1", ExpressionID: "other", Score: 0.99},
			{ParagraphID: "e-A1-P2", ExpressionID: "e", Score: 0.7},
			{ParagraphID: "e-A1-P1", ExpressionID: "e", Score: 0.9},
		},
		keyword: []string{"e-A1-P2", "e-A1-P3", "e-A1-P4", "e-A1-P5"},
	}
	repo := NewRepository(store, &fakeEmbedder{vector: []float32{1, 0}})

	got := repo.RetrieveParagraphs(context.Background(), "e", "rule", 5)

	want := []fused{
		{"e-A1-P1", domain.RetrievalVector},
		{"e-A1-P2", domain.RetrievalVector},
		{"e-A1-P3", domain.RetrievalKeyword},
		{"e-A1-P4", domain.RetrievalKeyword},
		{"e-A1-P5", domain.RetrievalKeyword},
	}
	if diff := cmp.Diff(want, project(got)); diff != "" {
		t.Errorf("fused paragraphs mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.Zero(t, got[4].Score)
	for _, p := range got {
		assert.Equal(t, "e", p.ExpressionID)
	}
}

func TestRetrieveParagraphs_VectorFillsTopK(t *testing.T) {
	store := &fakeGraph{
		GraphStore: sixParagraphs(t),
		nearest: []driven.ParagraphHit{
			{ParagraphID: "e-A1-P3", ExpressionID: "e", Score: 0.5},
			{ParagraphID: "e-A1-P1", ExpressionID: "e", Score: 0.5},
			{ParagraphID: "e-A1-P2", ExpressionID: "e", Score: 0.4},
		},
		keyword: []string{"e-A1-P6"},
	}
	repo := NewRepository(store, &fakeEmbedder{vector: []float32{1, 0}})

	got := repo.RetrieveParagraphs(context.Background(), "e", "rule", 2)

	want := []fused{
		{"e-A1-P1", domain.RetrievalVector},
		{"e-A1-P3", domain.RetrievalVector},
	}
	if diff := cmp.Diff(want, project(got)); diff != "" {
		t.Errorf("vector ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieveParagraphs_KeywordOnly(t *testing.T) {
	tests := []struct {
		name     string
		embedder driven.EmbeddingService
	}{
		{"no embedder", nil},
		{"embedding failure", &fakeEmbedder{err: errors.New("model offline")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(fixtureStore(t), tt.embedder)
			got := repo.RetrieveParagraphs(context.Background(), "mica-2024", "authorised", 5)

			want := []fused{
				{"mica-2024-A16-P1", domain.RetrievalKeyword},
				{"mica-2024-A59-P1", domain.RetrievalKeyword},
			}
			if diff := cmp.Diff(want, project(got)); diff != "" {
				t.Errorf("keyword results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRetrieveParagraphs_MemoryVectors(t *testing.T) {
	repo := NewRepository(fixtureStore(t), &fakeEmbedder{vector: []float32{1, 0, 0, 0}})

	got := repo.RetrieveParagraphs(context.Background(), "mica-2024", "issuer", 2)

	want := []fused{
		{"mica-2024-A16-P1", domain.RetrievalVector},
		{"mica-2024-A16-P2", domain.RetrievalVector},
	}
	if diff := cmp.Diff(want, project(got)); diff != "" {
		t.Errorf("vector results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "sha256:new", got[0].FileHash)
}

func TestRetrieveParagraphs_Empty(t *testing.T) {
	repo := NewRepository(fixtureStore(t), nil)

	got := repo.RetrieveParagraphs(context.Background(), "mica-2024", "  ", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = repo.RetrieveParagraphs(context.Background(), "", "authorised", 5)
	assert.Empty(t, got)

	got = repo.RetrieveParagraphs(context.Background(), "mica-2024", "no such words", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
