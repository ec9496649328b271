package driven

import "time"

// Answer outcomes reported to AnswerMetrics.
const (
	OutcomeAnswered     = "answered"
	OutcomeInsufficient = "insufficient"
	OutcomeRefused      = "refused"
)

// AnswerMetrics records answering pipeline observations.
// Implementations must be safe for concurrent use.
type AnswerMetrics interface {
	// ObserveAnswer records one finished request. mode is "single" or
	// "orchestrated"; attempts is the number of retrieval attempts made.
	ObserveAnswer(mode, outcome string, attempts int, elapsed time.Duration)

	// IncGenerationRetry records a retried generation call.
	IncGenerationRetry()

	// IncGenerationTimeout records a generation call that hit its deadline.
	IncGenerationTimeout()

	// IncGuardrailFailure records an answer replaced by the guardrail.
	IncGuardrailFailure(reason string)
}
