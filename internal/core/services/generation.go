package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Generation retry budget and store deadline.
const (
	DefaultGenerationTimeout = 30 * time.Second
	DefaultGenerationRetries = 2
	DefaultQueryTimeout      = 10 * time.Second

	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 2 * time.Second
)

// defaultAnswerSystemPrompt is used when no prompt store is configured.
const defaultAnswerSystemPrompt = "You are a regulatory assistant. Use only the provided context to answer. " +
	"Each paragraph in the answer must include at least one inline citation. " +
	"If the answer is not supported by the context, respond with '" + domain.InsufficientMessage + "'"

// GenerationInput is everything the model sees for one answer.
type GenerationInput struct {
	Question     string
	Role         string
	AsOfDate     string
	Jurisdiction string

	// Paragraphs are numbered [1..n] in this order.
	Paragraphs []domain.RetrievedParagraph
}

// GeneratorConfig bounds calls to the LLM.
type GeneratorConfig struct {
	// Timeout is the per-call deadline.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
}

// AnswerGenerator wraps the LLM with a per-call timeout and bounded retry.
// A timed-out call is retried with the same evidence; choosing different
// evidence is the orchestrator's job.
type AnswerGenerator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	metrics driven.AnswerMetrics
	cfg     GeneratorConfig

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnswerGenerator creates a generator. llm may be nil, in which case
// every call fails with domain.ErrLLMUnavailable.
func NewAnswerGenerator(llm driven.LLMService, cfg GeneratorConfig) *AnswerGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerationTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &AnswerGenerator{
		llm:   llm,
		cfg:   cfg,
		sleep: sleepContext,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (g *AnswerGenerator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// SetMetrics sets the metrics sink for retries and timeouts.
func (g *AnswerGenerator) SetMetrics(m driven.AnswerMetrics) {
	g.metrics = m
}

// Available reports whether an LLM is configured.
func (g *AnswerGenerator) Available() bool {
	return g.llm != nil
}

// Answer generates, maps and validates an answer. An answer with an
// unmappable marker or an uncited paragraph becomes the insufficient
// sentinel. citations are the sorted unique retrieved ids the answer cites.
func (g *AnswerGenerator) Answer(ctx context.Context, in GenerationInput) (string, []string, error) {
	if len(in.Paragraphs) == 0 {
		return domain.InsufficientMessage, []string{}, nil
	}

	raw, err := g.Generate(ctx, in)
	if err != nil {
		return "", nil, err
	}
	if raw == "" || domain.IsInsufficient(raw) {
		return domain.InsufficientMessage, []string{}, nil
	}

	ids := domain.ParagraphIDs(in.Paragraphs)
	mapped, invalid := MapCitations(raw, ids)
	if invalid {
		logger.Debug("Answer cites a passage number outside 1..%d", len(ids))
		return domain.InsufficientMessage, []string{}, nil
	}

	retrieved := idSet(ids)
	if !ValidateAnswer(mapped, retrieved) {
		logger.Debug("Answer failed citation validation")
		return domain.InsufficientMessage, []string{}, nil
	}

	citations := FilterCitations(mapped, retrieved)
	sort.Strings(citations)
	return mapped, citations, nil
}

// Generate calls the LLM with up to MaxRetries+1 attempts, each bounded by
// Timeout, backing off min(200ms*2^(n-1), 2s) between attempts.
// Configuration errors are returned immediately. Exhausted timeouts wrap
// domain.ErrGenerationTimeout.
func (g *AnswerGenerator) Generate(ctx context.Context, in GenerationInput) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: g.systemPrompt()},
		{Role: "user", Content: BuildContextPrompt(in)},
	}

	attempts := g.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		text, err := g.llm.Chat(callCtx, messages, driven.ChatOptions{Temperature: 0})
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			return strings.TrimSpace(text), nil
		}
		if domain.IsFatal(err) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if timedOut {
			lastErr = domain.ErrGenerationTimeout
			g.observeTimeout()
		} else {
			lastErr = fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		logger.Warn("Generation attempt %d/%d failed: %v", attempt, attempts, err)

		if attempt < attempts {
			g.observeRetry()
			if err := g.sleep(ctx, Backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the wait after the given 1-based failed attempt.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (g *AnswerGenerator) systemPrompt() string {
	if g.prompts != nil {
		if p, err := g.prompts.Load(driven.PromptAnswerSystem); err == nil && p != "" {
			return p
		}
	}
	return defaultAnswerSystemPrompt
}

func (g *AnswerGenerator) observeRetry() {
	if g.metrics != nil {
		g.metrics.IncGenerationRetry()
	}
}

func (g *AnswerGenerator) observeTimeout() {
	if g.metrics != nil {
		g.metrics.IncGenerationTimeout()
	}
}

// BuildQueryText renders the request lines shown to the model.
func BuildQueryText(in GenerationInput) string {
	return strings.Join([]string{
		"Role: " + in.Role,
		"Jurisdiction: " + in.Jurisdiction,
		"As-of date: " + in.AsOfDate,
		"Question: " + in.Question,
	}, "\n")
}

// BuildContextPrompt numbers the evidence passages and appends the query.
func BuildContextPrompt(in GenerationInput) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, p := range in.Paragraphs {
		fmt.Fprintf(&b, "[%d] Article %s", i+1, p.ArticleNumber)
		if p.ArticleTitle != "" {
			fmt.Fprintf(&b, " (%s)", p.ArticleTitle)
		}
		fmt.Fprintf(&b, ", paragraph %s:\n%s\n\n", p.ParagraphNumber, p.Text)
	}
	b.WriteString("Question:\n")
	b.WriteString(BuildQueryText(in))
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
