package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure scorers implement the interface.
var (
	_ driven.FaithfulnessScorer = StubScorer{}
	_ driven.FaithfulnessScorer = (*LLMJudgeScorer)(nil)
)

// StubScorer passes every answer. It is the default scorer; citation
// validation still gates the guardrail.
type StubScorer struct{}

// Score always returns 1.0.
func (StubScorer) Score(context.Context, string, []string) (float64, error) {
	return 1.0, nil
}

const defaultJudgePrompt = "Rate how well the answer is supported by the evidence.\n" +
	"Reply with a single number between 0 and 1.\n\nEvidence:\n%s\n\nAnswer:\n%s\n\nScore:"

var judgeScore = regexp.MustCompile(`-?\d*\.?\d+`)

// LLMJudgeScorer asks the LLM to rate support on a 0..1 scale.
// Replies without a number score 0.
type LLMJudgeScorer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	timeout time.Duration
}

// NewLLMJudgeScorer creates a judge scorer. prompts may be nil.
func NewLLMJudgeScorer(llm driven.LLMService, prompts driven.PromptStore, timeout time.Duration) *LLMJudgeScorer {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &LLMJudgeScorer{llm: llm, prompts: prompts, timeout: timeout}
}

// Score rates answer against evidence.
func (s *LLMJudgeScorer) Score(ctx context.Context, answer string, evidence []string) (float64, error) {
	if s.llm == nil {
		return 0, domain.ErrLLMUnavailable
	}

	template := defaultJudgePrompt
	if s.prompts != nil {
		if p, err := s.prompts.Load(driven.PromptFaithfulnessJudge); err == nil && strings.Count(p, "%s") == 2 {
			template = p
		}
	}
	prompt := fmt.Sprintf(template, strings.Join(evidence, "\n\n"), answer)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 8, Temperature: 0})
	if err != nil {
		return 0, fmt.Errorf("faithfulness judge: %w", err)
	}
	return parseJudgeScore(reply), nil
}

// parseJudgeScore extracts the first number in reply, clamped to [0, 1].
func parseJudgeScore(reply string) float64 {
	m := judgeScore.FindString(reply)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
