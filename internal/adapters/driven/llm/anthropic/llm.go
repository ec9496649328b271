// Package anthropic drives the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config configures the messages client. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers prompts with a Claude model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type messagesRequest struct {
	Model       string       `json:"model"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
	StopSeqs    []string     `json:"stop_sequences,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewLLMService fails with domain.ErrMissingCredentials when no key is set.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", domain.ErrMissingCredentials)
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
	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", anthropicVersion)
	return &LLMService{
		api:   apiclient.New("anthropic", cfg.BaseURL, cfg.Timeout, header),
		model: cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.request(opts.MaxTokens, opts.Temperature)
	req.Messages = []apiMessage{{Role: "user", Content: prompt}}
	req.StopSeqs = opts.StopWords
	return s.send(ctx, req)
}

// Chat lifts system turns into the top-level system field, which is the
// only place the API accepts them.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := s.request(opts.MaxTokens, opts.Temperature)
	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, apiMessage(m))
	}
	req.System = strings.Join(system, "\n\n")
	return s.send(ctx, req)
}

// request fills the fields shared by every call. max_tokens is mandatory.
func (s *LLMService) request(maxTokens int, temperature float64) messagesRequest {
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	return messagesRequest{Model: s.model, MaxTokens: maxTokens, Temperature: temperature}
}

func (s *LLMService) send(ctx context.Context, req messagesRequest) (string, error) {
	var resp messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropic: no response content returned")
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models", nil)
}

func (s *LLMService) Close() error {
	return nil
}
