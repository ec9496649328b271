// Package httptransport exposes the answering pipeline and its building
// blocks over HTTP.
package httptransport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// Metrics records served requests.
type Metrics interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Pinger reports whether a dependency is ready to serve.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ports holds the services the HTTP surface depends on.
// Readiness, Metrics and Gatherer are optional.
type Ports struct {
	Actions   driving.ActionsService
	Answers   driving.AnswerService
	Readiness Pinger
	Metrics   Metrics
	Gatherer  prometheus.Gatherer
}

// Config tunes the HTTP surface.
type Config struct {
	// RequestTimeout bounds every /actions request.
	RequestTimeout time.Duration

	// RateLimitPerMinute caps /actions requests per client address.
	// Zero disables limiting.
	RateLimitPerMinute int
}

// Server serves the HTTP API.
type Server struct {
	ports   *Ports
	cfg     Config
	limiter *clientLimiter
	handler http.Handler
}

// NewServer creates a server over ports.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if ports == nil || ports.Actions == nil || ports.Answers == nil {
		return nil, errors.New("actions and answer services are required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{ports: ports, cfg: cfg}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newClientLimiter(cfg.RateLimitPerMinute)
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.ports.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.ports.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/actions", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Post("/search-items", s.handleSearchItems)
		r.Post("/resolve-temporal-scope", s.handleResolveTemporalScope)
		r.Post("/get-valid-version", s.handleGetValidVersion)
		r.Post("/search-text-units", s.handleSearchTextUnits)
		r.Post("/answer", s.handleAnswer)
		r.Post("/answer-orchestrated", s.handleAnswerOrchestrated)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ports.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ports.Readiness.Ping(ctx); err != nil {
			logger.Warn("readiness check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
