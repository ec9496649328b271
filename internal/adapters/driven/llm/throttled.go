// Package llm holds decorators shared by every LLM provider adapter.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure Throttled implements the interface.
var _ driven.LLMService = (*Throttled)(nil)

// Throttled wraps an LLMService with a token-bucket rate limit shared by
// every caller. Waiting for a token honours the caller's context, so a
// generation deadline also bounds time spent queued.
type Throttled struct {
	next    driven.LLMService
	limiter *rate.Limiter
}

// NewThrottled limits next to rps requests per second with a burst of one.
// A non-positive rps returns next unchanged.
func NewThrottled(next driven.LLMService, rps float64) driven.LLMService {
	if next == nil || rps <= 0 {
		return next
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (t *Throttled) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The deadline is too close for any token to arrive in time.
		return fmt.Errorf("llm throttled: %w: %w", domain.ErrTransient, err)
	}
	return nil
}

// Generate waits for a token then delegates.
func (t *Throttled) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	return t.next.Generate(ctx, prompt, opts)
}

// Chat waits for a token then delegates.
func (t *Throttled) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	return t.next.Chat(ctx, messages, opts)
}

// ModelName returns the wrapped model name.
func (t *Throttled) ModelName() string {
	return t.next.ModelName()
}

// Ping is not throttled.
func (t *Throttled) Ping(ctx context.Context) error {
	return t.next.Ping(ctx)
}

// Close closes the wrapped service.
func (t *Throttled) Close() error {
	return t.next.Close()
}
