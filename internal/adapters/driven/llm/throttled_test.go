package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

type countingLLM struct {
	calls atomic.Int32
}

func (c *countingLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	c.calls.Add(1)
	return "generated", nil
}

func (c *countingLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	c.calls.Add(1)
	return "chatted", nil
}

func (c *countingLLM) ModelName() string          { return "counting" }
func (c *countingLLM) Ping(context.Context) error { return nil }
func (c *countingLLM) Close() error               { return nil }

func TestNewThrottled_DisabledReturnsInner(t *testing.T) {
	inner := &countingLLM{}
	assert.Same(t, inner, NewThrottled(inner, 0))
	assert.Nil(t, NewThrottled(nil, 5))
}

func TestThrottled_Delegates(t *testing.T) {
	inner := &countingLLM{}
	svc := NewThrottled(inner, 1000)

	out, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chatted", out)

	out, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "generated", out)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "counting", svc.ModelName())
}

func TestThrottled_DeadlineTooCloseIsTransient(t *testing.T) {
	inner := &countingLLM{}
	svc := NewThrottled(inner, 0.01)

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.Chat(ctx, nil, driven.ChatOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int32(1), inner.calls.Load())
}
