package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, DefaultModel, svc.ModelName())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large", Dimensions: 768})
	require.NoError(t, err)
	assert.Equal(t, 768, svc.Dimensions())
	assert.True(t, svc.truncate)
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, []string{"a", "b"}, got.Input)
	assert.Zero(t, got.Dimensions)
}

func TestEmbed_StatusClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrTransient)
}
