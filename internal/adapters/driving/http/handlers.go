package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

type metadataFilter struct {
	Jurisdiction   string `json:"jurisdiction"`
	AuthorityLevel *int   `json:"authority_level"`
	WorkID         string `json:"work_id"`
}

type searchItemsRequest struct {
	Query          string          `json:"query"`
	MetadataFilter *metadataFilter `json:"metadata_filter"`
	Limit          *int            `json:"limit"`
}

type resolveTemporalScopeRequest struct {
	DateString string `json:"date_string"`
}

type getValidVersionRequest struct {
	ComponentID string `json:"component_id"`
	TargetDate  string `json:"target_date"`
}

type validVersionResponse struct {
	ExpressionID string  `json:"expression_id"`
	WorkID       string  `json:"work_id"`
	ValidFrom    string  `json:"valid_from"`
	ValidTo      *string `json:"valid_to"`
}

type searchTextUnitsRequest struct {
	ExpressionID  string `json:"expression_id"`
	SemanticQuery string `json:"semantic_query"`
	TopK          *int   `json:"top_k"`
}

type answerRequest struct {
	Question     string `json:"question"`
	Role         string `json:"role"`
	AsOfDate     string `json:"as_of_date"`
	Jurisdiction string `json:"jurisdiction"`
	TopK         *int   `json:"top_k"`
	ItemLimit    *int   `json:"item_limit"`
}

func (req answerRequest) toDomain() domain.AnswerRequest {
	return domain.AnswerRequest{
		Question:     req.Question,
		Role:         req.Role,
		AsOfDate:     req.AsOfDate,
		Jurisdiction: req.Jurisdiction,
		TopK:         intOr(req.TopK, domain.DefaultTopK),
		ItemLimit:    intOr(req.ItemLimit, domain.DefaultItemLimit),
	}
}

// checkBounds rejects explicit budgets the defaults would otherwise hide.
func (req answerRequest) checkBounds() error {
	if req.TopK != nil && (*req.TopK < 1 || *req.TopK > domain.MaxTopK) {
		return fmt.Errorf("%w: top_k must be between 1 and %d", domain.ErrInvalidInput, domain.MaxTopK)
	}
	if req.ItemLimit != nil && (*req.ItemLimit < 1 || *req.ItemLimit > domain.MaxItemLimit) {
		return fmt.Errorf("%w: item_limit must be between 1 and %d", domain.ErrInvalidInput, domain.MaxItemLimit)
	}
	return nil
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	var req searchItemsRequest
	if !decode(w, r, &req) {
		return
	}

	var filter domain.CandidateFilter
	if req.MetadataFilter != nil {
		filter = domain.CandidateFilter{
			Jurisdiction:   req.MetadataFilter.Jurisdiction,
			AuthorityLevel: req.MetadataFilter.AuthorityLevel,
			WorkID:         req.MetadataFilter.WorkID,
		}
	}

	items, err := s.ports.Actions.SearchItems(r.Context(), req.Query, filter, intOr(req.Limit, domain.DefaultSearchLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.CandidateItem{}
	}
	writeJSON(w, http.StatusOK, itemsResponse[domain.CandidateItem]{Items: items})
}

func (s *Server) handleResolveTemporalScope(w http.ResponseWriter, r *http.Request) {
	var req resolveTemporalScopeRequest
	if !decode(w, r, &req) {
		return
	}
	scope, err := s.ports.Actions.ResolveTemporalScope(req.DateString)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scope.View())
}

func (s *Server) handleGetValidVersion(w http.ResponseWriter, r *http.Request) {
	var req getValidVersionRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ComponentID) == "" {
		writeError(w, r, fmt.Errorf("%w: component_id is required", domain.ErrInvalidInput))
		return
	}
	date, err := domain.ParseDate(req.TargetDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	version, err := s.ports.Actions.GetValidVersion(r.Context(), req.ComponentID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := validVersionResponse{
		ExpressionID: version.ExpressionID,
		WorkID:       version.WorkID,
		ValidFrom:    version.ValidFrom.Format(domain.DateLayout),
	}
	if version.ValidTo != nil {
		to := version.ValidTo.Format(domain.DateLayout)
		resp.ValidTo = &to
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchTextUnits(w http.ResponseWriter, r *http.Request) {
	var req searchTextUnitsRequest
	if !decode(w, r, &req) {
		return
	}
	paragraphs, err := s.ports.Actions.SearchTextUnits(
		r.Context(), req.ExpressionID, req.SemanticQuery, intOr(req.TopK, domain.DefaultTextUnitTopK))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if paragraphs == nil {
		paragraphs = []domain.RetrievedParagraph{}
	}
	writeJSON(w, http.StatusOK, itemsResponse[domain.RetrievedParagraph]{Items: paragraphs})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.checkBounds(); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := s.ports.Answers.Answer(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleAnswerOrchestrated(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.checkBounds(); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := s.ports.Answers.AnswerOrchestrated(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: decoding request body: %w", domain.ErrInvalidInput, err))
		return false
	}
	return true
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
