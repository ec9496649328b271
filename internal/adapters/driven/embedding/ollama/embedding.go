// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "nomic-embed-text"
	DefaultTimeout     = 30 * time.Second
	DefaultDimensions  = 768
	DefaultConcurrency = 4
)

// Config configures the client. Every field has a default.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions must match the model. Vectors of any other size are
	// rejected with domain.ErrDimensionMismatch.
	Dimensions int

	// Concurrency caps in-flight requests during EmbedBatch.
	Concurrency int
}

type EmbeddingService struct {
	api         *apiclient.Client
	model       string
	dimensions  int
	concurrency int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &EmbeddingService{
		api:         apiclient.New("ollama", cfg.BaseURL, cfg.Timeout, nil),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		concurrency: cfg.Concurrency,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := s.api.Post(ctx, "/api/embeddings", embedRequest{Model: s.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) != s.dimensions {
		return nil, fmt.Errorf("ollama: got %d dimensions, want %d: %w",
			len(resp.Embedding), s.dimensions, domain.ErrDimensionMismatch)
	}
	return resp.Embedding, nil
}

// EmbedBatch issues one request per text since the endpoint takes a single
// prompt. Output order matches input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := s.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists local models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

func (s *EmbeddingService) Close() error {
	return nil
}
