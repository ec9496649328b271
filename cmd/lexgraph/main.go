// Command lexgraph answers regulatory questions from a temporal legal graph.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexgraph/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexgraph/internal/app"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/services"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context) int {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("opening config: %v", err)
		return 1
	}
	prompts, err := file.NewPromptStore("")
	if err != nil {
		logger.Error("opening prompts: %v", err)
		return 1
	}

	settings := services.NewSettingsService(configStore, ai.NewConfigValidator())
	cli.Configure(settings, func(ctx context.Context, s *domain.AppSettings) (*cli.Runtime, error) {
		rt, err := app.Build(ctx, *s, prompts)
		if err != nil {
			return nil, err
		}
		return &cli.Runtime{
			Answers:   rt.Answers,
			Actions:   rt.Actions,
			Embedder:  rt.Embedder(),
			Loader:    rt.Store,
			Readiness: rt.Store,
			Metrics:   rt.Metrics,
			Gatherer:  rt.Registry,
			Close:     rt.Close,
		}, nil
	})

	if err := cli.Execute(ctx); err != nil {
		// cobra has already printed the error
		if domain.IsClientError(err) {
			return 2
		}
		return 1
	}
	return 0
}
