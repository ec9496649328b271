// Package cli implements the lexgraph command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	httptransport "github.com/custodia-labs/lexgraph/internal/adapters/driving/http"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Runtime is the set of services commands run against. It is built on
// first use so that settings commands work without a reachable store.
type Runtime struct {
	Answers  driving.AnswerService
	Actions  driving.ActionsService
	Embedder driven.EmbeddingService
	Loader   driven.GraphLoader

	// Readiness is pinged by the HTTP readiness check.
	Readiness httptransport.Pinger
	Metrics   httptransport.Metrics
	Gatherer  prometheus.Gatherer

	Close func() error
}

// BootFunc builds a Runtime from the current settings.
type BootFunc func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)

var (
	settingsService driving.SettingsService
	boot            BootFunc

	// active is the runtime of the running command.
	active *Runtime
)

var (
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "lexgraph",
	Short: "Answer regulatory questions from a temporal legal graph",
	Long: `lexgraph answers questions about regulations using the version of the
law in force at a given date. Every answer cites the paragraphs it is
based on, and questions without enough evidence get an explicit
insufficient-information response.`,
	SilenceUsage:      true,
	PersistentPreRunE: configureLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
}

// Configure injects the settings service and the runtime builder.
func Configure(settings driving.SettingsService, bootFunc BootFunc) {
	settingsService = settings
	boot = bootFunc
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return run(ctx)
}

// run executes the command line and releases the runtime it built.
func run(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeRuntime(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func configureLogging(*cobra.Command, []string) error {
	logger.SetJSON(logJSON)
	if verbose {
		logger.SetVerbose(true)
		return nil
	}
	if settingsService == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil || settings.LogLevel == "" {
		return nil //nolint:nilerr // settings errors surface in the command itself
	}
	if err := logger.SetLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("%w: log.level: %w", domain.ErrConfiguration, err)
	}
	return nil
}

// runtimeFor returns the active runtime, building it on first use.
func runtimeFor(cmd *cobra.Command) (*Runtime, error) {
	if active != nil {
		return active, nil
	}
	if settingsService == nil || boot == nil {
		return nil, errors.New("runtime not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	rt, err := boot(contextOf(cmd), settings)
	if err != nil {
		return nil, err
	}
	active = rt
	return rt, nil
}

func closeRuntime() error {
	rt := active
	active = nil
	if rt == nil || rt.Close == nil {
		return nil
	}
	return rt.Close()
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
