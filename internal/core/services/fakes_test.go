package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/domain/domaintest"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// fakeLLM answers Chat with reply, or with chatFn when set.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	chatFn   func(ctx context.Context, call int) (string, error)
	genReply string
	genErr   error
	calls    int
	prompts  []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.genReply, f.genErr
}

func (f *fakeLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	fn := f.chatFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	return f.reply, nil
}

func (f *fakeLLM) ModelName() string            { return "fake" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEmbedder returns a fixed vector for every text.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fakeEmbedder) Dimensions() int              { return len(f.vector) }
func (f *fakeEmbedder) ModelName() string            { return "fake" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// fakeScorer returns score, or err when set.
type fakeScorer struct {
	score    float64
	err      error
	evidence []string
}

func (f *fakeScorer) Score(_ context.Context, _ string, evidence []string) (float64, error) {
	f.evidence = evidence
	return f.score, f.err
}

// recordingMetrics records every observation.
type recordingMetrics struct {
	mu         sync.Mutex
	answers    []string
	attempts   []int
	retries    int
	timeouts   int
	guardrails []string
}

func (m *recordingMetrics) ObserveAnswer(mode, outcome string, attempts int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, mode+"/"+outcome)
	m.attempts = append(m.attempts, attempts)
}

func (m *recordingMetrics) IncGenerationRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *recordingMetrics) IncGenerationTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *recordingMetrics) IncGuardrailFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardrails = append(m.guardrails, reason)
}

// fakePrompts serves prompts from a map.
type fakePrompts map[string]string

func (f fakePrompts) Load(name string) (string, error) { return f[name], nil }
func (f fakePrompts) Reload()                          {}

// noSleep skips backoff waits and records them.
func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

// fakeGraph overrides selected GraphStore methods of an embedded store.
type fakeGraph struct {
	driven.GraphStore

	validAt    []domain.Expression
	validAtErr error
	nearest    []driven.ParagraphHit
	keyword    []string

	// keywordLimits records the limit of every keyword query.
	keywordLimits []int

	// hang makes candidate and version lookups wait for their context.
	hang bool
}

func (f *fakeGraph) SearchCandidates(
	ctx context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.GraphStore.SearchCandidates(ctx, query, filter, limit)
}

func (f *fakeGraph) ExpressionsValidAt(ctx context.Context, ref domain.Reference, date time.Time) ([]domain.Expression, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.validAt != nil || f.validAtErr != nil {
		return f.validAt, f.validAtErr
	}
	return f.GraphStore.ExpressionsValidAt(ctx, ref, date)
}

func (f *fakeGraph) NearestParagraphs(ctx context.Context, embedding []float32, k int) ([]driven.ParagraphHit, error) {
	if f.nearest != nil {
		return f.nearest, nil
	}
	return f.GraphStore.NearestParagraphs(ctx, embedding, k)
}

func (f *fakeGraph) KeywordParagraphs(ctx context.Context, expressionID, query string, limit int) ([]string, error) {
	f.keywordLimits = append(f.keywordLimits, limit)
	if f.keyword != nil {
		return f.keyword, nil
	}
	return f.GraphStore.KeywordParagraphs(ctx, expressionID, query, limit)
}

// fixtureStore returns a memory store loaded with the fixture graph.
func fixtureStore(t *testing.T) *memory.GraphStore {
	t.Helper()
	store := memory.NewGraphStore(domaintest.Dimensions)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))
	return store
}
