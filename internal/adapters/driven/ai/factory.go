// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	geminiembed "github.com/custodia-labs/lexgraph/internal/adapters/driven/embedding/gemini"
	hashembed "github.com/custodia-labs/lexgraph/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/lexgraph/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/lexgraph/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/llm"
	anthropicllm "github.com/custodia-labs/lexgraph/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/lexgraph/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/lexgraph/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/lexgraph/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if retrieval fell back to keyword-only mode.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise creates the configured providers and pings them together with
// the graph store in parallel.
//
// An unreachable store, a provider configuration error or an embedding size
// that differs from the store's vector index is fatal. An unreachable
// provider is dropped with a warning: retrieval falls back to keyword-only
// and answers degrade to the insufficient-information response.
func Initialise(ctx context.Context, settings *domain.AppSettings, store driven.GraphStore) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	result.EmbeddingService = embedder

	generator, err := CreateLLMService(ctx, &settings.LLM)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	result.LLMService = llm.NewThrottled(generator, settings.Generation.RequestsPerSecond)

	var (
		mu        sync.Mutex
		storeDims int
	)
	warn := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	// Only the store check returns an error; provider failures are warnings.
	g, gctx := errgroup.WithContext(pctx)
	g.Go(func() error {
		if err := store.Ping(gctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		dims, err := store.VectorDimensions(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		storeDims = dims
		return nil
	})
	if embedder != nil {
		g.Go(func() error {
			if err := embedder.Ping(gctx); err != nil {
				warn("embedding service unreachable, using keyword retrieval only: %v", err)
				embedder.Close()
				mu.Lock()
				result.EmbeddingService = nil
				result.FellBack = true
				mu.Unlock()
			}
			return nil
		})
	}
	if generator != nil {
		g.Go(func() error {
			if err := generator.Ping(gctx); err != nil {
				if errors.Is(err, domain.ErrConfiguration) {
					return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
				}
				warn("llm service unreachable, answers will be insufficient: %v", err)
				generator.Close()
				mu.Lock()
				result.LLMService = nil
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		result.Close()
		return nil, err
	}

	if err := CheckDimensions(result.EmbeddingService, storeDims); err != nil {
		result.Close()
		return nil, err
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result, nil
}

// CheckDimensions fails when the embedder's vector size differs from the
// store's index size. A store without an index (0) accepts any size.
func CheckDimensions(embedder driven.EmbeddingService, storeDims int) error {
	if embedder == nil || storeDims == 0 {
		return nil
	}
	if got := embedder.Dimensions(); got != storeDims {
		return fmt.Errorf("%s produces %d dimensions but the vector index has %d: %w",
			embedder.ModelName(), got, storeDims, domain.ErrDimensionMismatch)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("anthropic does not support embeddings, use hash, ollama, openai or gemini")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHash:
		return hashembed.NewEmbeddingService(settings.Dimensions)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding resolves the vector size from the known model table.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
