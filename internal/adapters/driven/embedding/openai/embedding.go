// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// nativeDimensions is the output size of each known model.
var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embeddings client. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors to fit the graph's
	// vector index. Zero keeps the model's native size.
	Dimensions int
}

type EmbeddingService struct {
	api        *apiclient.Client
	model      string
	dimensions int
	truncate   bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbeddingService fails with domain.ErrMissingCredentials when no key
// is set. Unknown models are assumed to produce 1536 dimensions.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	native, ok := nativeDimensions[cfg.Model]
	if !ok {
		native = 1536
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = native
	}

	header := http.Header{"Authorization": {"Bearer " + cfg.APIKey}}
	return &EmbeddingService{
		api:        apiclient.New("openai", cfg.BaseURL, cfg.Timeout, header),
		model:      cfg.Model,
		dimensions: dims,
		truncate:   dims != native && cfg.Model != "text-embedding-ada-002",
	}, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || vecs[0] == nil {
		return nil, errors.New("openai: no embedding returned")
	}
	return vecs[0], nil
}

// EmbedBatch sends every text in one request and orders the vectors by the
// index the API reports.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.truncate {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.api.Post(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

func (s *EmbeddingService) Close() error {
	return nil
}
