package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/domain/domaintest"
	"github.com/custodia-labs/lexgraph/internal/core/services"
)

type mockAnswers struct {
	answer       *domain.Answer
	orchestrated *domain.OrchestratedAnswer
	err          error

	lastRequest domain.AnswerRequest
	calls       int
}

func (m *mockAnswers) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.lastRequest = req
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockAnswers) AnswerOrchestrated(_ context.Context, req domain.AnswerRequest) (*domain.OrchestratedAnswer, error) {
	m.lastRequest = req
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.orchestrated, nil
}

// testEnv is the wiring seen by commands under test.
type testEnv struct {
	answers  *mockAnswers
	store    *memory.GraphStore
	settings *services.SettingsService
	boots    int
	closed   int
}

// setupTestServices configures the package with a memory-backed runtime
// and restores the previous wiring when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewGraphStore(domaintest.Dimensions)
	require.NoError(t, store.LoadGraph(context.Background(), domaintest.Graph()))

	env := &testEnv{
		answers:  &mockAnswers{answer: domain.InsufficientAnswer()},
		store:    store,
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
	}

	prevSettings, prevBoot := settingsService, boot
	Configure(env.settings, func(context.Context, *domain.AppSettings) (*Runtime, error) {
		env.boots++
		return &Runtime{
			Answers:   env.answers,
			Actions:   services.NewActionsService(services.NewRepository(store, nil)),
			Loader:    store,
			Readiness: store,
			Close: func() error {
				env.closed++
				return nil
			},
		}, nil
	})

	t.Cleanup(func() {
		Configure(prevSettings, prevBoot)
		active = nil
	})
	return env
}

// forceTerminal makes commands render human output.
func forceTerminal(t *testing.T) {
	t.Helper()
	prev := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = prev })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	err := run(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
