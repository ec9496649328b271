package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultModel, svc.ModelName())

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
