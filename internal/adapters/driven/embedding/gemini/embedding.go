// Package gemini provides an embedding service adapter using the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	llmgemini "github.com/custodia-labs/lexgraph/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
	DefaultTimeout    = 60 * time.Second

	// taskType tunes vectors for short queries matched against stored passages.
	taskType = "RETRIEVAL_QUERY"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client, err := llmgemini.NewClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{client: client, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("gemini: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(s.dimensions) //nolint:gosec
	result, err := s.client.Models.EmbedContent(ctx, s.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, llmgemini.Classify(err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping fetches the model metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, nil); err != nil {
		return llmgemini.Classify(err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
