package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestLLMService_Chat_SystemPrompt(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Part one "},{"type":"text","text":"[1]."}]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be precise"},
		{Role: "user", Content: "question"},
	}, driven.ChatOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Part one [1].", text)
	assert.Equal(t, "be precise", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
}

func TestLLMService_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrTransient)
}
