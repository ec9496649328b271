// Package ollama drives a local Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the client. Every field has a default.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers prompts with a locally served model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

// options carries sampling parameters. temperature is always sent.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		api:   apiclient.New("ollama", cfg.BaseURL, cfg.Timeout, nil),
		model: cfg.Model,
	}
}

// Generate uses /api/generate with streaming off.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Options: options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature, Stop: opts.StopWords},
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := s.api.Post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Chat uses /api/chat with streaming off.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: make([]chatMessage, len(messages)),
		Options:  options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage(m)
	}
	var resp struct {
		Message chatMessage `json:"message"`
	}
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

func (s *LLMService) Close() error {
	return nil
}
