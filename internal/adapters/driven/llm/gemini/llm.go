// Package gemini provides an LLM service adapter using the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// Model is the LLM model to use (default: gemini-2.0-flash).
	Model string

	// Timeout bounds a single request (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Gemini.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	client, err := NewClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{client: client, model: cfg.Model}, nil
}

// NewClient builds a Gemini API client. It is shared with the embedding adapter.
func NewClient(ctx context.Context, apiKey, baseURL string, timeout time.Duration) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingCredentials)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(float32(opts.Temperature)),
		StopSequences: opts.StopWords,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens) //nolint:gosec
	}
	return s.generate(ctx, contents, cfg)
}

// Chat conducts a multi-turn conversation. System messages become the
// system instruction; assistant turns map to the model role.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens) //nolint:gosec
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return s.generate(ctx, contents, cfg)
}

func (s *LLMService) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return "", Classify(err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: no response content returned")
	}
	return text, nil
}

// Classify maps SDK API errors onto the domain taxonomy.
func Classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiclient.FromStatus("gemini", apiErr.Code, []byte(apiErr.Message))
	}
	return fmt.Errorf("gemini: %w", err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the model metadata, which validates the key without inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model, nil); err != nil {
		return Classify(err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
