package driving

import (
	"context"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// AnswerService answers regulatory questions with cited, time-valid evidence.
// Both operations are synchronous and side-effect free. Evidence and
// generation failures degrade to the insufficient-information answer; only
// invalid requests and configuration errors are returned as errors.
type AnswerService interface {
	// Answer runs the single-pass pipeline against the top candidate item.
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)

	// AnswerOrchestrated runs the bounded verify/retry/guardrail loop.
	AnswerOrchestrated(ctx context.Context, req domain.AnswerRequest) (*domain.OrchestratedAnswer, error)
}
