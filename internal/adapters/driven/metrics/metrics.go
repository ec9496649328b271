// Package metrics provides Prometheus collectors for the answering pipeline
// and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.AnswerMetrics = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Answers by mode ("single"|"orchestrated") and outcome.
	Answers *prometheus.CounterVec

	// Retrieval attempts per answered request.
	Attempts *prometheus.HistogramVec

	// End-to-end answer latency.
	AnswerLatency *prometheus.HistogramVec

	GenerationRetries  prometheus.Counter
	GenerationTimeouts prometheus.Counter

	// Guardrail replacements by reason code.
	GuardrailFailures *prometheus.CounterVec

	// HTTP requests by route pattern, method and status.
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexgraph_answers_total",
			Help: "Total answers by mode and outcome",
		}, []string{"mode", "outcome"}),

		Attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexgraph_retrieval_attempts",
			Help:    "Retrieval attempts made per answer",
			Buckets: []float64{1, 2, 3, 4, 5},
		}, []string{"mode"}),

		AnswerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexgraph_answer_duration_seconds",
			Help:    "Duration of answer requests including generation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),

		GenerationRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexgraph_generation_retries_total",
			Help: "Total retried generation calls",
		}),

		GenerationTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexgraph_generation_timeouts_total",
			Help: "Total generation calls that hit their deadline",
		}),

		GuardrailFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexgraph_guardrail_failures_total",
			Help: "Total answers replaced by the output guardrail",
		}, []string{"reason"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexgraph_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveAnswer records one finished request.
func (m *Metrics) ObserveAnswer(mode, outcome string, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(mode, outcome).Inc()
	m.Attempts.WithLabelValues(mode).Observe(float64(attempts))
	m.AnswerLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// IncGenerationRetry records a retried generation call.
func (m *Metrics) IncGenerationRetry() {
	if m != nil {
		m.GenerationRetries.Inc()
	}
}

// IncGenerationTimeout records a generation call that hit its deadline.
func (m *Metrics) IncGenerationTimeout() {
	if m != nil {
		m.GenerationTimeouts.Inc()
	}
}

// IncGuardrailFailure records an answer replaced by the guardrail.
func (m *Metrics) IncGuardrailFailure(reason string) {
	if m != nil {
		m.GuardrailFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
