package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppSettings_Valid(t *testing.T) {
	s := DefaultAppSettings()
	require.NoError(t, s.Validate())

	assert.Equal(t, StoreMemory, s.Store.Backend)
	assert.Equal(t, AIProviderHash, s.Embedding.Provider)
	assert.Equal(t, s.VectorIndex.Dimensions, s.Embedding.Dimensions)
	assert.Equal(t, 3, s.Retrieval.MaxAttempts)
	assert.InDelta(t, 0.9, s.Guardrail.Threshold, 1e-9)
	assert.False(t, s.LLM.IsConfigured())
}

func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppSettings)
		target error
	}{
		{"unknown backend", func(s *AppSettings) { s.Store.Backend = "postgres" }, ErrConfiguration},
		{"unknown llm", func(s *AppSettings) { s.LLM.Provider = "cohere" }, ErrConfiguration},
		{"hash dimension mismatch", func(s *AppSettings) { s.Embedding.Dimensions = 128 }, ErrDimensionMismatch},
		{"zero index", func(s *AppSettings) { s.VectorIndex.Dimensions = 0 }, ErrConfiguration},
		{"top_k too large", func(s *AppSettings) { s.Retrieval.TopK = 51 }, ErrConfiguration},
		{"item_limit zero", func(s *AppSettings) { s.Retrieval.ItemLimit = 0 }, ErrConfiguration},
		{"negative retries", func(s *AppSettings) { s.Generation.MaxRetries = -1 }, ErrConfiguration},
		{"zero timeout", func(s *AppSettings) { s.Generation.TimeoutSeconds = 0 }, ErrConfiguration},
		{"zero query timeout", func(s *AppSettings) { s.Store.QueryTimeoutSeconds = 0 }, ErrConfiguration},
		{"unknown scorer", func(s *AppSettings) { s.Guardrail.Scorer = "magic" }, ErrConfiguration},
		{"threshold above one", func(s *AppSettings) { s.Guardrail.Threshold = 1.5 }, ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultAppSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.target)
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderHash.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderHash}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderHash}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}

func TestStoreBackend(t *testing.T) {
	for _, b := range AllStoreBackends() {
		assert.True(t, b.IsValid())
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, StoreBackend("postgres").IsValid())
}
