package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAmbiguous):
		return http.StatusConflict, "ambiguous_version"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError renders err. Server-side failures carry no detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: code}
	if status < http.StatusInternalServerError {
		body.Detail = err.Error()
	} else {
		logger.Error("%s %s failed (request_id=%s): %v", r.Method, r.URL.Path, RequestID(r.Context()), err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}
