package domain

import (
	"fmt"
	"strings"
)

// InsufficientMessage is the sentinel answer returned whenever evidence or
// validation is inadequate. It is always a valid terminal outcome.
const InsufficientMessage = "Insufficient information from available sources."

// RefusalMessage is returned for advisory requests.
const RefusalMessage = "I can't provide legal or financial advice. " +
	"I can summarize relevant rules with citations if you want."

// IsInsufficient reports whether text is the sentinel answer.
func IsInsufficient(text string) bool {
	return strings.TrimSpace(text) == InsufficientMessage
}

// Request bounds and defaults shared by every driving adapter.
const (
	DefaultTopK      = 6
	DefaultItemLimit = 5
	MaxTopK          = 50
	MaxItemLimit     = 20

	DefaultTextUnitTopK = 5
	DefaultSearchLimit  = 10
	MaxSearchLimit      = 50
)

// RequestClass is the outcome of advisory classification.
type RequestClass string

// Request classes.
const (
	ClassInformational RequestClass = "informational"
	ClassAdvisory      RequestClass = "advisory"
)

// AnswerRequest is a question to answer against a legal version.
type AnswerRequest struct {
	Question     string
	Role         string
	AsOfDate     string
	Jurisdiction string
	TopK         int
	ItemLimit    int
}

// WithDefaults fills zero-valued budgets.
func (r AnswerRequest) WithDefaults() AnswerRequest {
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	if r.ItemLimit == 0 {
		r.ItemLimit = DefaultItemLimit
	}
	return r
}

// Validate checks the request fields and budgets.
func (r AnswerRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if r.TopK < 1 || r.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidInput, MaxTopK)
	}
	if r.ItemLimit < 1 || r.ItemLimit > MaxItemLimit {
		return fmt.Errorf("%w: item_limit must be between 1 and %d", ErrInvalidInput, MaxItemLimit)
	}
	return nil
}

// Answer is the single-pass answer.
type Answer struct {
	Answer       string               `json:"answer"`
	ExpressionID *string              `json:"expression_id"`
	WorkID       *string              `json:"work_id"`
	Citations    []string             `json:"citations"`
	Sources      []RetrievedParagraph `json:"sources"`
}

// InsufficientAnswer returns the sentinel single-pass answer.
func InsufficientAnswer() *Answer {
	return &Answer{
		Answer:    InsufficientMessage,
		Citations: []string{},
		Sources:   []RetrievedParagraph{},
	}
}

// Reason codes recorded in Verification.Reason.
const (
	ReasonNoItems              = "no_items"
	ReasonVersionUnavailable   = "version_unavailable"
	ReasonNoParagraphs         = "no_paragraphs"
	ReasonInvalidCitations     = "invalid_citations"
	ReasonFaithfulnessLow      = "faithfulness_score_low"
	ReasonGuardrailFailed      = "guardrail_failed"
	ReasonAdvisoryRefusal      = "advisory_refusal"
	ReasonTemporalScopeInvalid = "temporal_scope_invalid"
	ReasonGenerationFailed     = "generation_failed"
)

// Orchestrator plan step names.
const (
	StepPlan                 = "Plan"
	StepResolveTemporalScope = "Resolve Temporal Scope"
	StepRetrieveEvidence     = "Retrieve Evidence"
	StepVerifyCitations      = "Verify Citations"
	StepOutputGuardrail      = "Output Guardrail"
	StepRespond              = "Respond"
)

// PlanSteps returns the fixed orchestrator plan.
func PlanSteps() []string {
	return []string{
		StepPlan,
		StepResolveTemporalScope,
		StepRetrieveEvidence,
		StepVerifyCitations,
		StepOutputGuardrail,
		StepRespond,
	}
}

// RetrievedItem records the evidence gathered by one retrieval attempt.
type RetrievedItem struct {
	Attempt      int                  `json:"attempt"`
	Item         CandidateItem        `json:"item"`
	ExpressionID *string              `json:"expression_id"`
	WorkID       *string              `json:"work_id"`
	Paragraphs   []RetrievedParagraph `json:"paragraphs"`
}

// ScopeView is the wire rendering of a TemporalScope.
type ScopeView struct {
	Type  string `json:"type"`
	Date  string `json:"date,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// View renders the scope with ISO date strings.
func (s TemporalScope) View() ScopeView {
	v := ScopeView{Type: string(s.Type)}
	if s.Date != nil {
		v.Date = s.Date.Format(DateLayout)
	}
	if s.Start != nil {
		v.Start = s.Start.Format(DateLayout)
	}
	if s.End != nil {
		v.End = s.End.Format(DateLayout)
	}
	return v
}

// Verification accumulates the checks performed by an orchestrated run.
type Verification struct {
	TemporalScope      *ScopeView `json:"temporal_scope,omitempty"`
	ResolvedDate       string     `json:"resolved_date,omitempty"`
	RetrievedIDs       []string   `json:"retrieved_ids,omitempty"`
	Citations          []string   `json:"citations,omitempty"`
	ExtractedCitations []string   `json:"extracted_citations,omitempty"`
	CitationsValid     bool       `json:"citations_valid"`
	FaithfulnessScore  float64    `json:"faithfulness_score"`
	GuardrailPassed    bool       `json:"guardrail_passed"`
	Reason             string     `json:"reason,omitempty"`
}

// OrchestratedAnswer is the result of the verify/retry/guardrail loop.
type OrchestratedAnswer struct {
	Answer         string          `json:"answer"`
	Citations      []string        `json:"citations"`
	PlanSteps      []string        `json:"plan_steps"`
	RetrievedItems []RetrievedItem `json:"retrieved_items"`
	Verification   Verification    `json:"verification_results"`
}
