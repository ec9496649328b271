package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// Answer modes reported to metrics.
const (
	modeSingle       = "single"
	modeOrchestrated = "orchestrated"
)

// AnswerService answers questions against the temporal graph, either in a
// single pass over the best candidate or through the orchestrator loop.
type AnswerService struct {
	repo         *Repository
	generator    *AnswerGenerator
	orchestrator *Orchestrator
	metrics      driven.AnswerMetrics
	now          func() time.Time
}

// NewAnswerService creates an answer service.
// The scorer parameter is optional (can be nil); StubScorer is used then.
func NewAnswerService(
	repo *Repository, generator *AnswerGenerator, scorer driven.FaithfulnessScorer, cfg OrchestratorConfig,
) *AnswerService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AnswerService{
		repo:         repo,
		generator:    generator,
		orchestrator: NewOrchestrator(repo, generator, scorer, cfg),
		now:          cfg.Now,
	}
}

// SetMetrics sets the metrics sink for the service, its orchestrator and
// its generator.
func (s *AnswerService) SetMetrics(m driven.AnswerMetrics) {
	s.metrics = m
	s.orchestrator.SetMetrics(m)
	s.generator.SetMetrics(m)
}

// Answer runs the single-pass pipeline: classify, take the top candidate,
// resolve its version at the as-of date, retrieve, generate and validate.
// Any evidence or generation failure yields the insufficient answer.
func (s *AnswerService) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	if ClassifyRequest(req.Question) == domain.ClassAdvisory {
		logger.Debug("Advisory request refused")
		s.observe(modeSingle, driven.OutcomeRefused, 0, start)
		return &domain.Answer{
			Answer:    domain.RefusalMessage,
			Citations: []string{},
			Sources:   []domain.RetrievedParagraph{},
		}, nil
	}

	answer, err := s.answerSingle(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := driven.OutcomeAnswered
	if domain.IsInsufficient(answer.Answer) {
		outcome = driven.OutcomeInsufficient
	}
	s.observe(modeSingle, outcome, 1, start)
	return answer, nil
}

func (s *AnswerService) answerSingle(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	logger.Section("Resolve As-Of Date")
	asOf, err := s.resolveAsOf(req.AsOfDate)
	if err != nil {
		logger.Debug("As-of date %q rejected: %v", req.AsOfDate, err)
		return domain.InsufficientAnswer(), nil
	}

	logger.Section("Find Candidate Items")
	items, err := s.repo.FindCandidateItems(ctx, req.Question,
		domain.CandidateFilter{Jurisdiction: req.Jurisdiction}, req.ItemLimit)
	if err != nil {
		logger.Warn("Candidate search failed: %v", err)
		return domain.InsufficientAnswer(), nil
	}
	if len(items) == 0 {
		return domain.InsufficientAnswer(), nil
	}

	logger.Section("Resolve Valid Version")
	version, err := s.repo.ResolveValidVersion(ctx, items[0].Reference, asOf)
	if err != nil {
		if domain.IsFatal(err) {
			return nil, err
		}
		logger.Debug("No valid version for %s: %v", items[0].Reference, err)
		return domain.InsufficientAnswer(), nil
	}

	paragraphs := s.repo.RetrieveParagraphs(ctx, version.ExpressionID, req.Question, req.TopK)
	if len(paragraphs) == 0 {
		return domain.InsufficientAnswer(), nil
	}

	logger.Section("Generate Answer")
	text, citations, err := s.generator.Answer(ctx, GenerationInput{
		Question:     req.Question,
		Role:         req.Role,
		AsOfDate:     asOf.Format(domain.DateLayout),
		Jurisdiction: req.Jurisdiction,
		Paragraphs:   paragraphs,
	})
	if err != nil {
		if domain.IsFatal(err) {
			return nil, err
		}
		logger.Warn("Generation failed: %v", err)
		return domain.InsufficientAnswer(), nil
	}
	if domain.IsInsufficient(text) {
		return domain.InsufficientAnswer(), nil
	}

	exprID, workID := version.ExpressionID, version.WorkID
	return &domain.Answer{
		Answer:       text,
		ExpressionID: &exprID,
		WorkID:       &workID,
		Citations:    citations,
		Sources:      paragraphs,
	}, nil
}

// resolveAsOf accepts a literal date first, then any temporal expression.
func (s *AnswerService) resolveAsOf(expr string) (time.Time, error) {
	if d, err := domain.ParseDate(expr); err == nil {
		return d, nil
	}
	scope, err := domain.ParseTemporalScope(expr, s.now())
	if err != nil {
		return time.Time{}, err
	}
	return scope.EffectiveDate(), nil
}

// AnswerOrchestrated runs the verify/retry/guardrail loop. Advisory
// questions are refused before the loop starts.
func (s *AnswerService) AnswerOrchestrated(
	ctx context.Context, req domain.AnswerRequest,
) (*domain.OrchestratedAnswer, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	requestID := uuid.NewString()

	if ClassifyRequest(req.Question) == domain.ClassAdvisory {
		logger.Infow("orchestrated answer refused", "request_id", requestID)
		s.observe(modeOrchestrated, driven.OutcomeRefused, 0, start)
		return &domain.OrchestratedAnswer{
			Answer:         domain.RefusalMessage,
			Citations:      []string{},
			PlanSteps:      []string{},
			RetrievedItems: []domain.RetrievedItem{},
			Verification: domain.Verification{
				RetrievedIDs: []string{},
				Citations:    []string{},
				Reason:       domain.ReasonAdvisoryRefusal,
			},
		}, nil
	}

	resp, attempts, err := s.orchestrator.Run(ctx, req)
	if err != nil {
		logger.Warnw("orchestrated answer failed", "request_id", requestID, "error", err)
		return nil, err
	}

	outcome := driven.OutcomeAnswered
	if domain.IsInsufficient(resp.Answer) {
		outcome = driven.OutcomeInsufficient
	}
	logger.Infow("orchestrated answer served",
		"request_id", requestID,
		"attempts", attempts,
		"outcome", outcome,
		"reason", resp.Verification.Reason,
	)
	s.observe(modeOrchestrated, outcome, attempts, start)
	return resp, nil
}

func (s *AnswerService) observe(mode, outcome string, attempts int, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAnswer(mode, outcome, attempts, time.Since(start))
	}
}
