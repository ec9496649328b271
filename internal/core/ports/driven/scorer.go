package driven

import "context"

// FaithfulnessScorer rates how well an answer is supported by evidence.
// Scores are in [0, 1]; the output guardrail passes answers at or above its
// configured threshold.
type FaithfulnessScorer interface {
	Score(ctx context.Context, answer string, evidence []string) (float64, error)
}
