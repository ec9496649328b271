package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// orchestratorState names a node of the answering state machine.
type orchestratorState string

const (
	statePlan                 orchestratorState = "plan"
	stateResolveTemporalScope orchestratorState = "resolve_temporal_scope"
	stateRetrieveEvidence     orchestratorState = "retrieve_evidence"
	stateVerifyCitations      orchestratorState = "verify_citations"
	stateOutputGuardrail      orchestratorState = "output_guardrail"
	stateRespond              orchestratorState = "respond"
	stateDone                 orchestratorState = "done"
)

// widenStep is how much top_k grows on each retrieval attempt.
const widenStep = 2

// runState is the per-request accumulator threaded through the handlers.
// Handlers receive a copy and return a patch; only apply mutates it.
type runState struct {
	req            domain.AnswerRequest
	planSteps      []string
	attempts       int
	resolvedDate   time.Time
	scopeInvalid   bool
	retrievedItems []domain.RetrievedItem
	retrievedIDs   []string
	draft          string
	verification   domain.Verification
	response       *domain.OrchestratedAnswer
}

// statePatch is the change a handler makes to runState.
// Nil fields are left untouched; slices are appended.
type statePatch struct {
	planSteps    []string
	attempts     *int
	resolvedDate *time.Time
	scopeInvalid bool
	appendItem   *domain.RetrievedItem
	appendIDs    []string
	draft        *string
	verification *domain.Verification
	response     *domain.OrchestratedAnswer
}

func (s *runState) apply(p statePatch) {
	if p.planSteps != nil {
		s.planSteps = p.planSteps
	}
	if p.attempts != nil {
		s.attempts = *p.attempts
	}
	if p.resolvedDate != nil {
		s.resolvedDate = *p.resolvedDate
	}
	if p.scopeInvalid {
		s.scopeInvalid = true
	}
	if p.appendItem != nil {
		s.retrievedItems = append(s.retrievedItems, *p.appendItem)
	}
	for _, id := range p.appendIDs {
		if !slices.Contains(s.retrievedIDs, id) {
			s.retrievedIDs = append(s.retrievedIDs, id)
		}
	}
	if p.draft != nil {
		s.draft = *p.draft
	}
	if p.verification != nil {
		s.verification = *p.verification
	}
	if p.response != nil {
		s.response = p.response
	}
}

// OrchestratorConfig tunes the verify/retry/guardrail loop.
type OrchestratorConfig struct {
	// MaxAttempts caps retrieval attempts. Defaults to 3.
	MaxAttempts int

	// Threshold is the minimum faithfulness score. Defaults to 0.9.
	Threshold float64

	// Now returns the current time for relative as-of expressions.
	Now func() time.Time
}

// Orchestrator composes retrieval, generation, citation checks and the
// faithfulness guardrail into a bounded loop. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	repo      *Repository
	generator *AnswerGenerator
	scorer    driven.FaithfulnessScorer
	metrics   driven.AnswerMetrics
	cfg       OrchestratorConfig
}

// NewOrchestrator creates an orchestrator. scorer may be nil, in which case
// StubScorer is used.
func NewOrchestrator(
	repo *Repository, generator *AnswerGenerator, scorer driven.FaithfulnessScorer, cfg OrchestratorConfig,
) *Orchestrator {
	if scorer == nil {
		scorer = StubScorer{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = domain.DefaultGuardrailScore
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		repo:      repo,
		generator: generator,
		scorer:    scorer,
		cfg:       cfg,
	}
}

// SetMetrics sets the metrics sink for guardrail failures.
func (o *Orchestrator) SetMetrics(m driven.AnswerMetrics) {
	o.metrics = m
}

// Run executes the state machine for one request. Only configuration errors
// are returned; every other failure ends in the insufficient sentinel.
func (o *Orchestrator) Run(ctx context.Context, req domain.AnswerRequest) (*domain.OrchestratedAnswer, int, error) {
	st := runState{req: req}
	state := statePlan

	for state != stateDone {
		p, err := o.handle(ctx, state, st)
		if err != nil {
			return nil, st.attempts, err
		}
		st.apply(p)
		state = o.next(state, st)
	}

	return st.response, st.attempts, nil
}

func (o *Orchestrator) handle(ctx context.Context, state orchestratorState, st runState) (statePatch, error) {
	switch state {
	case statePlan:
		return o.plan(st), nil
	case stateResolveTemporalScope:
		return o.resolveTemporalScope(st), nil
	case stateRetrieveEvidence:
		return o.retrieveEvidence(ctx, st)
	case stateVerifyCitations:
		return o.verifyCitations(st), nil
	case stateOutputGuardrail:
		return o.outputGuardrail(ctx, st), nil
	case stateRespond:
		return o.respond(st), nil
	default:
		return statePatch{}, fmt.Errorf("unknown orchestrator state %q", state)
	}
}

// next is the transition function. The only conditional edges leave
// ResolveTemporalScope (invalid scope skips to Respond) and VerifyCitations.
func (o *Orchestrator) next(state orchestratorState, st runState) orchestratorState {
	switch state {
	case statePlan:
		return stateResolveTemporalScope
	case stateResolveTemporalScope:
		if st.scopeInvalid {
			return stateRespond
		}
		return stateRetrieveEvidence
	case stateRetrieveEvidence:
		return stateVerifyCitations
	case stateVerifyCitations:
		return o.routeAfterVerify(st)
	case stateOutputGuardrail:
		return stateRespond
	default:
		return stateDone
	}
}

// routeAfterVerify loops back to retrieval until citations validate or the
// attempt budget is spent.
func (o *Orchestrator) routeAfterVerify(st runState) orchestratorState {
	if st.verification.CitationsValid {
		return stateOutputGuardrail
	}
	if st.attempts >= o.cfg.MaxAttempts {
		return stateOutputGuardrail
	}
	return stateRetrieveEvidence
}

func (o *Orchestrator) plan(st runState) statePatch {
	logger.Section(domain.StepPlan)
	zero := 0
	return statePatch{planSteps: domain.PlanSteps(), attempts: &zero}
}

func (o *Orchestrator) resolveTemporalScope(st runState) statePatch {
	logger.Section(domain.StepResolveTemporalScope)
	v := st.verification

	scope, err := domain.ParseTemporalScope(st.req.AsOfDate, o.cfg.Now())
	if err != nil {
		logger.Debug("As-of date %q rejected: %v", st.req.AsOfDate, err)
		v.Reason = domain.ReasonTemporalScopeInvalid
		sentinel := domain.InsufficientMessage
		return statePatch{scopeInvalid: true, draft: &sentinel, verification: &v}
	}

	resolved := scope.EffectiveDate()
	view := scope.View()
	v.TemporalScope = &view
	v.ResolvedDate = resolved.Format(domain.DateLayout)
	logger.Debug("Temporal scope %s resolves at %s", scope, v.ResolvedDate)
	return statePatch{resolvedDate: &resolved, verification: &v}
}

func (o *Orchestrator) retrieveEvidence(ctx context.Context, st runState) (statePatch, error) {
	logger.Section(domain.StepRetrieveEvidence)
	attempt := st.attempts + 1
	topK := st.req.TopK + (attempt-1)*widenStep
	v := st.verification
	sentinel := domain.InsufficientMessage
	logger.Debug("Attempt %d, top_k %d", attempt, topK)

	fail := func(reason string, item *domain.RetrievedItem) statePatch {
		v.Reason = reason
		return statePatch{attempts: &attempt, draft: &sentinel, appendItem: item, verification: &v}
	}

	items, err := o.repo.FindCandidateItems(ctx, st.req.Question,
		domain.CandidateFilter{Jurisdiction: st.req.Jurisdiction}, st.req.ItemLimit)
	if err != nil {
		logger.Warn("Candidate search failed: %v", err)
	}
	if len(items) == 0 {
		return fail(domain.ReasonNoItems, nil), nil
	}

	// Attempt N uses the N-th candidate, clamped to the last one available
	selected := items[min(attempt-1, len(items)-1)]
	item := &domain.RetrievedItem{Attempt: attempt, Item: selected, Paragraphs: []domain.RetrievedParagraph{}}

	version, err := o.repo.ResolveValidVersion(ctx, selected.Reference, st.resolvedDate)
	if err != nil {
		if domain.IsFatal(err) {
			return statePatch{}, err
		}
		logger.Debug("No valid version for %s: %v", selected.Reference, err)
		return fail(domain.ReasonVersionUnavailable, item), nil
	}
	item.ExpressionID = &version.ExpressionID
	item.WorkID = &version.WorkID

	paragraphs := o.repo.RetrieveParagraphs(ctx, version.ExpressionID, st.req.Question, topK)
	if len(paragraphs) == 0 {
		return fail(domain.ReasonNoParagraphs, item), nil
	}
	item.Paragraphs = paragraphs
	ids := domain.ParagraphIDs(paragraphs)

	draft, citations, err := o.generator.Answer(ctx, GenerationInput{
		Question:     st.req.Question,
		Role:         st.req.Role,
		AsOfDate:     st.resolvedDate.Format(domain.DateLayout),
		Jurisdiction: st.req.Jurisdiction,
		Paragraphs:   paragraphs,
	})
	if err != nil {
		if domain.IsFatal(err) {
			return statePatch{}, err
		}
		logger.Warn("Generation failed: %v", err)
		p := fail(domain.ReasonGenerationFailed, item)
		p.appendIDs = ids
		return p, nil
	}

	v.Reason = ""
	v.Citations = citations
	return statePatch{
		attempts:     &attempt,
		draft:        &draft,
		appendItem:   item,
		appendIDs:    ids,
		verification: &v,
	}, nil
}

func (o *Orchestrator) verifyCitations(st runState) statePatch {
	logger.Section(domain.StepVerifyCitations)
	v := st.verification
	retrieved := idSet(st.retrievedIDs)

	valid := false
	if st.draft != "" && !domain.IsInsufficient(st.draft) && len(retrieved) > 0 {
		valid = ValidateAnswer(st.draft, retrieved)
	}

	v.RetrievedIDs = append([]string{}, st.retrievedIDs...)
	v.CitationsValid = valid
	v.ExtractedCitations = FilterCitations(st.draft, retrieved)
	if !valid && v.Reason == "" {
		v.Reason = domain.ReasonInvalidCitations
	}
	logger.Debug("Citations valid: %t (%d retrieved ids)", valid, len(retrieved))
	return statePatch{verification: &v}
}

func (o *Orchestrator) outputGuardrail(ctx context.Context, st runState) statePatch {
	logger.Section(domain.StepOutputGuardrail)
	v := st.verification

	// Only the most recent attempt's evidence counts
	var evidence []string
	if n := len(st.retrievedItems); n > 0 {
		for _, p := range st.retrievedItems[n-1].Paragraphs {
			evidence = append(evidence, p.Text)
		}
	}

	score := 0.0
	if v.CitationsValid && !domain.IsInsufficient(st.draft) {
		s, err := o.scorer.Score(ctx, st.draft, evidence)
		if err != nil {
			logger.Warn("Faithfulness scoring failed: %v", err)
		} else {
			score = s
		}
	}

	passed := v.CitationsValid && !domain.IsInsufficient(st.draft) && score >= o.cfg.Threshold
	v.FaithfulnessScore = score
	v.GuardrailPassed = passed
	logger.Debug("Faithfulness %.2f (threshold %.2f), passed: %t", score, o.cfg.Threshold, passed)

	if passed {
		return statePatch{verification: &v}
	}

	if v.Reason == "" {
		if score < o.cfg.Threshold {
			v.Reason = domain.ReasonFaithfulnessLow
		} else {
			v.Reason = domain.ReasonGuardrailFailed
		}
	}
	if o.metrics != nil {
		o.metrics.IncGuardrailFailure(v.Reason)
	}
	sentinel := domain.InsufficientMessage
	return statePatch{draft: &sentinel, verification: &v}
}

func (o *Orchestrator) respond(st runState) statePatch {
	logger.Section(domain.StepRespond)
	v := st.verification

	answer := st.draft
	exhausted := st.attempts >= o.cfg.MaxAttempts && !v.CitationsValid
	if !v.GuardrailPassed || exhausted || answer == "" {
		answer = domain.InsufficientMessage
	}

	citations := []string{}
	if !domain.IsInsufficient(answer) {
		citations = FilterCitations(answer, idSet(st.retrievedIDs))
	}

	items := st.retrievedItems
	if items == nil {
		items = []domain.RetrievedItem{}
	}
	if v.RetrievedIDs == nil {
		v.RetrievedIDs = []string{}
	}
	if v.Citations == nil {
		v.Citations = []string{}
	}

	return statePatch{response: &domain.OrchestratedAnswer{
		Answer:         answer,
		Citations:      citations,
		PlanSteps:      st.planSteps,
		RetrievedItems: items,
		Verification:   v,
	}}
}
