// Package openai drives the chat completions API. Any OpenAI-compatible
// server works through BaseURL.
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

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the chat client. Only APIKey is required.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds one HTTP exchange. The answer generator normally
	// sets a shorter deadline on the context.
	Timeout time.Duration
}

// LLMService answers prompts with a chat completion model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type chatCompletionRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message apiMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMService fails with domain.ErrMissingCredentials when no key is set.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	header := http.Header{"Authorization": {"Bearer " + cfg.APIKey}}
	return &LLMService{
		api:   apiclient.New("openai", cfg.BaseURL, cfg.Timeout, header),
		model: cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.complete(ctx,
		[]driven.ChatMessage{{Role: "user", Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature},
		opts.StopWords)
}

func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.complete(ctx, messages, opts, nil)
}

func (s *LLMService) complete(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions, stop []string) (string, error) {
	req := chatCompletionRequest{
		Model:     s.model,
		Messages:  make([]apiMessage, 0, len(messages)),
		MaxTokens: opts.MaxTokens,
		Stop:      stop,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, apiMessage(m))
	}
	// Sent explicitly so that 0 is not replaced by the server default.
	temperature := opts.Temperature
	req.Temperature = &temperature

	var resp chatCompletionResponse
	if err := s.api.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

func (s *LLMService) Close() error {
	return nil
}
