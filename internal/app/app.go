// Package app assembles the answering runtime from application settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/metrics"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/seed"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/neo4j"
	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/core/services"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Store is a graph store that also accepts seed loads.
type Store interface {
	driven.GraphStore
	driven.GraphLoader
}

// Runtime holds the wired services and the resources they own.
type Runtime struct {
	Settings domain.AppSettings
	Store    Store
	AI       *ai.InitResult

	Answers *services.AnswerService
	Actions *services.ActionsService

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Embedder returns the active embedding service, or nil in keyword-only mode.
func (r *Runtime) Embedder() driven.EmbeddingService {
	if r.AI == nil {
		return nil
	}
	return r.AI.EmbeddingService
}

// Close releases the AI providers and the store.
func (r *Runtime) Close() error {
	if r.AI != nil {
		r.AI.Close()
	}
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}

// OpenStore opens the configured graph store. Neo4j schemas are bootstrapped.
func OpenStore(ctx context.Context, settings domain.AppSettings) (Store, error) {
	dims := settings.VectorIndex.Dimensions
	switch settings.Store.Backend {
	case domain.StoreMemory, "":
		return memory.NewGraphStore(dims), nil

	case domain.StoreSQLite:
		return sqlite.NewStore(settings.Store.Path, dims)

	case domain.StoreNeo4j:
		store, err := neo4j.NewStore(neo4j.Config{
			URI:          settings.Neo4j.URI,
			User:         settings.Neo4j.User,
			Password:     settings.Neo4j.Password,
			Database:     settings.Neo4j.Database,
			Dimensions:   dims,
			QueryTimeout: time.Duration(settings.Store.QueryTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrConfiguration, settings.Store.Backend)
	}
}

// Build validates settings, opens the store, pings the providers and wires
// the answer and actions services. prompts may be nil. The in-memory store
// is seeded with the built-in graph.
func Build(ctx context.Context, settings domain.AppSettings, prompts driven.PromptStore) (*Runtime, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger.Section("Starting runtime")
	logger.Debug("store backend: %s", settings.Store.Backend)

	store, err := OpenStore(ctx, settings)
	if err != nil {
		return nil, err
	}

	result, err := ai.Initialise(ctx, &settings, store)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	rt := &Runtime{Settings: settings, Store: store, AI: result}

	if settings.Store.Backend == domain.StoreMemory || settings.Store.Backend == "" {
		g, err := seed.Default()
		if err != nil {
			return nil, errors.Join(err, rt.Close())
		}
		if err := seed.Load(ctx, g, result.EmbeddingService, store); err != nil {
			return nil, errors.Join(fmt.Errorf("loading built-in seed: %w", err), rt.Close())
		}
		logger.Debug("seeded memory store: %d works, %d paragraphs", len(g.Works), len(g.Paragraphs))
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = metrics.New(rt.Registry)

	timeout := time.Duration(settings.Generation.TimeoutSeconds) * time.Second
	generator := services.NewAnswerGenerator(result.LLMService, services.GeneratorConfig{
		Timeout:    timeout,
		MaxRetries: settings.Generation.MaxRetries,
	})
	if prompts != nil {
		generator.SetPromptStore(prompts)
	}

	repo := services.NewRepository(store, result.EmbeddingService)
	repo.SetQueryTimeout(time.Duration(settings.Store.QueryTimeoutSeconds) * time.Second)
	rt.Answers = services.NewAnswerService(repo, generator, scorerFor(settings, result.LLMService, prompts, timeout),
		services.OrchestratorConfig{
			MaxAttempts: settings.Retrieval.MaxAttempts,
			Threshold:   settings.Guardrail.Threshold,
		})
	rt.Answers.SetMetrics(rt.Metrics)
	rt.Actions = services.NewActionsService(repo)

	if result.FellBack {
		logger.Info("retrieval is keyword-only")
	}
	return rt, nil
}

func scorerFor(
	settings domain.AppSettings, llm driven.LLMService, prompts driven.PromptStore, timeout time.Duration,
) driven.FaithfulnessScorer {
	if settings.Guardrail.Scorer != domain.ScorerLLMJudge {
		return services.StubScorer{}
	}
	if llm == nil {
		logger.Warn("guardrail.scorer is %q but no LLM is available, using the stub scorer", domain.ScorerLLMJudge)
		return services.StubScorer{}
	}
	return services.NewLLMJudgeScorer(llm, prompts, timeout)
}
