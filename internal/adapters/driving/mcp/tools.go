package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// AnswerInput is the input schema for the answer tools.
type AnswerInput struct {
	Question     string `json:"question" jsonschema:"the regulatory question to answer"`
	Role         string `json:"role,omitempty" jsonschema:"role of the person asking, e.g. compliance analyst"`
	AsOfDate     string `json:"as_of_date,omitempty" jsonschema:"as-of date: YYYY-MM-DD, YYYY, current or last year"`
	Jurisdiction string `json:"jurisdiction,omitempty" jsonschema:"jurisdiction code, e.g. EU"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"paragraphs to retrieve (default 6, max 50)"`
	ItemLimit    int    `json:"item_limit,omitempty" jsonschema:"candidate items to consider (default 5, max 20)"`
}

func (in AnswerInput) request() domain.AnswerRequest {
	return domain.AnswerRequest{
		Question:     in.Question,
		Role:         in.Role,
		AsOfDate:     in.AsOfDate,
		Jurisdiction: in.Jurisdiction,
		TopK:         in.TopK,
		ItemLimit:    in.ItemLimit,
	}
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer       string                      `json:"answer"`
	ExpressionID string                      `json:"expression_id,omitempty"`
	WorkID       string                      `json:"work_id,omitempty"`
	Citations    []string                    `json:"citations"`
	Sources      []domain.RetrievedParagraph `json:"sources"`
}

// OrchestratedOutput is the output schema for the answer_orchestrated tool.
type OrchestratedOutput struct {
	Answer         string              `json:"answer"`
	Citations      []string            `json:"citations"`
	PlanSteps      []string            `json:"plan_steps"`
	RetrievedItems []RetrievedItemInfo `json:"retrieved_items"`
	Verification   domain.Verification `json:"verification_results"`
}

// RetrievedItemInfo is the evidence of one retrieval attempt.
type RetrievedItemInfo struct {
	Attempt      int                         `json:"attempt"`
	Item         ItemInfo                    `json:"item"`
	ExpressionID string                      `json:"expression_id,omitempty"`
	WorkID       string                      `json:"work_id,omitempty"`
	Paragraphs   []domain.RetrievedParagraph `json:"paragraphs"`
}

// SearchItemsInput is the input schema for the search_items tool.
type SearchItemsInput struct {
	Query          string `json:"query" jsonschema:"title or article number to look for"`
	Jurisdiction   string `json:"jurisdiction,omitempty" jsonschema:"only items of this jurisdiction"`
	AuthorityLevel *int   `json:"authority_level,omitempty" jsonschema:"only items with this authority level"`
	WorkID         string `json:"work_id,omitempty" jsonschema:"only items of this work"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of items (default 10, max 50)"`
}

// SearchItemsOutput is the output schema for the search_items tool.
type SearchItemsOutput struct {
	Items []ItemInfo `json:"items"`
	Count int        `json:"count"`
}

// ItemInfo is a candidate work or article.
type ItemInfo struct {
	Reference   string `json:"reference"`
	Kind        string `json:"kind"`
	ComponentID string `json:"component_id"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
}

func itemInfo(c domain.CandidateItem) ItemInfo {
	return ItemInfo{
		Reference:   c.Reference.String(),
		Kind:        c.Reference.Kind.String(),
		ComponentID: c.Reference.ID,
		Title:       c.Title,
		Score:       c.Score,
	}
}

// ResolveScopeInput is the input schema for the resolve_temporal_scope tool.
type ResolveScopeInput struct {
	DateString string `json:"date_string" jsonschema:"YYYY-MM-DD, YYYY, current or last year"`
}

// ValidVersionInput is the input schema for the get_valid_version tool.
type ValidVersionInput struct {
	ComponentID string `json:"component_id" jsonschema:"reference such as work:mica or article:mica-2024-A16"`
	TargetDate  string `json:"target_date" jsonschema:"date in YYYY-MM-DD format"`
}

// ValidVersionOutput is the output schema for the get_valid_version tool.
type ValidVersionOutput struct {
	ExpressionID string `json:"expression_id"`
	WorkID       string `json:"work_id"`
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to,omitempty"`
}

func versionOutput(v *domain.ResolvedVersion) ValidVersionOutput {
	out := ValidVersionOutput{
		ExpressionID: v.ExpressionID,
		WorkID:       v.WorkID,
		ValidFrom:    v.ValidFrom.Format(domain.DateLayout),
	}
	if v.ValidTo != nil {
		out.ValidTo = v.ValidTo.Format(domain.DateLayout)
	}
	return out
}

// TextUnitsInput is the input schema for the search_text_units tool.
type TextUnitsInput struct {
	ExpressionID  string `json:"expression_id" jsonschema:"expression whose paragraphs are searched"`
	SemanticQuery string `json:"semantic_query" jsonschema:"what the paragraphs should be about"`
	TopK          int    `json:"top_k,omitempty" jsonschema:"maximum number of paragraphs (default 5, max 50)"`
}

// TextUnitsOutput is the output schema for the search_text_units tool.
type TextUnitsOutput struct {
	Items []domain.RetrievedParagraph `json:"items"`
	Count int                         `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a regulatory question from the version in force at the as-of date, with paragraph citations",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer_orchestrated",
		Description: "Answer a regulatory question with citation verification, " +
			"widening retrieval retries and a faithfulness guardrail",
	}, s.handleAnswerOrchestrated)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_items",
		Description: "Find works and articles by title or article number",
	}, s.handleSearchItems)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_temporal_scope",
		Description: "Resolve an as-of expression into a date or date interval",
	}, s.handleResolveScope)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_valid_version",
		Description: "Find the expression of a work, expression, article or paragraph in force on a date",
	}, s.handleValidVersion)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_text_units",
		Description: "Retrieve paragraphs of one expression by similarity with keyword fallback",
	}, s.handleTextUnits)
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.ports.Answers.Answer(ctx, input.request())
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	out := AnswerOutput{
		Answer:    answer.Answer,
		Citations: nonNil(answer.Citations),
		Sources:   nonNil(answer.Sources),
	}
	if answer.ExpressionID != nil {
		out.ExpressionID = *answer.ExpressionID
	}
	if answer.WorkID != nil {
		out.WorkID = *answer.WorkID
	}
	return nil, out, nil
}

func (s *Server) handleAnswerOrchestrated(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, OrchestratedOutput, error) {
	answer, err := s.ports.Answers.AnswerOrchestrated(ctx, input.request())
	if err != nil {
		return nil, OrchestratedOutput{}, err
	}

	out := OrchestratedOutput{
		Answer:         answer.Answer,
		Citations:      nonNil(answer.Citations),
		PlanSteps:      nonNil(answer.PlanSteps),
		RetrievedItems: make([]RetrievedItemInfo, 0, len(answer.RetrievedItems)),
		Verification:   answer.Verification,
	}
	for _, item := range answer.RetrievedItems {
		info := RetrievedItemInfo{
			Attempt:    item.Attempt,
			Item:       itemInfo(item.Item),
			Paragraphs: nonNil(item.Paragraphs),
		}
		if item.ExpressionID != nil {
			info.ExpressionID = *item.ExpressionID
		}
		if item.WorkID != nil {
			info.WorkID = *item.WorkID
		}
		out.RetrievedItems = append(out.RetrievedItems, info)
	}
	return nil, out, nil
}

func (s *Server) handleSearchItems(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchItemsInput,
) (*mcp.CallToolResult, SearchItemsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	filter := domain.CandidateFilter{
		Jurisdiction:   input.Jurisdiction,
		AuthorityLevel: input.AuthorityLevel,
		WorkID:         input.WorkID,
	}

	items, err := s.ports.Actions.SearchItems(ctx, input.Query, filter, limit)
	if err != nil {
		return nil, SearchItemsOutput{}, err
	}

	out := SearchItemsOutput{Items: make([]ItemInfo, len(items)), Count: len(items)}
	for i, item := range items {
		out.Items[i] = itemInfo(item)
	}
	return nil, out, nil
}

func (s *Server) handleResolveScope(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveScopeInput,
) (*mcp.CallToolResult, domain.ScopeView, error) {
	scope, err := s.ports.Actions.ResolveTemporalScope(input.DateString)
	if err != nil {
		return nil, domain.ScopeView{}, err
	}
	return nil, scope.View(), nil
}

func (s *Server) handleValidVersion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ValidVersionInput,
) (*mcp.CallToolResult, ValidVersionOutput, error) {
	date, err := domain.ParseDate(input.TargetDate)
	if err != nil {
		return nil, ValidVersionOutput{}, err
	}
	version, err := s.ports.Actions.GetValidVersion(ctx, input.ComponentID, date)
	if err != nil {
		return nil, ValidVersionOutput{}, fmt.Errorf("resolving %s at %s: %w", input.ComponentID, input.TargetDate, err)
	}
	return nil, versionOutput(version), nil
}

func (s *Server) handleTextUnits(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextUnitsInput,
) (*mcp.CallToolResult, TextUnitsOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = domain.DefaultTextUnitTopK
	}
	paragraphs, err := s.ports.Actions.SearchTextUnits(ctx, input.ExpressionID, input.SemanticQuery, topK)
	if err != nil {
		return nil, TextUnitsOutput{}, err
	}
	return nil, TextUnitsOutput{Items: nonNil(paragraphs), Count: len(paragraphs)}, nil
}

// nonNil keeps empty lists as [] on the wire.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
