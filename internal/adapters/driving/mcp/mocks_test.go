package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer       *domain.Answer
	orchestrated *domain.OrchestratedAnswer
	err          error
	got          domain.AnswerRequest
}

func (m *mockAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.got = req
	return m.answer, m.err
}

func (m *mockAnswerService) AnswerOrchestrated(
	_ context.Context, req domain.AnswerRequest,
) (*domain.OrchestratedAnswer, error) {
	m.got = req
	return m.orchestrated, m.err
}

// mockActionsService is a mock implementation of driving.ActionsService.
type mockActionsService struct {
	items      []domain.CandidateItem
	scope      domain.TemporalScope
	version    *domain.ResolvedVersion
	paragraphs []domain.RetrievedParagraph
	err        error

	gotLimit  int
	gotFilter domain.CandidateFilter
	gotTopK   int
	gotDate   time.Time
}

func (m *mockActionsService) SearchItems(
	_ context.Context, _ string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	m.gotFilter = filter
	m.gotLimit = limit
	return m.items, m.err
}

func (m *mockActionsService) ResolveTemporalScope(string) (domain.TemporalScope, error) {
	return m.scope, m.err
}

func (m *mockActionsService) GetValidVersion(
	_ context.Context, _ string, date time.Time,
) (*domain.ResolvedVersion, error) {
	m.gotDate = date
	return m.version, m.err
}

func (m *mockActionsService) SearchTextUnits(
	_ context.Context, _, _ string, topK int,
) ([]domain.RetrievedParagraph, error) {
	m.gotTopK = topK
	return m.paragraphs, m.err
}
