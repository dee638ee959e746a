package httpapi

import (
	"errors"
	"net/http"

	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/go-chi/chi/v5"
)

// failedEvaluation is the body returned when the hot-path lookup
// itself fails closed: a non-200 with {key, enabled:false} instead of
// the generic error envelope, so SDKs can treat it as a
// self-describing disabled result without parsing the error body.
type failedEvaluation struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// handleEvaluate is the SDK hot path: GET /v1/flags/{key}?user_id=...,
// environment-key auth only. An unknown flag fails closed with 404 and
// {key, enabled:false} rather than the standard error envelope;
// clients treat any non-200 as disabled.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	userID := r.URL.Query().Get("user_id")

	result, err := s.eval.Evaluate(r.Context(), principal, key, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failedEvaluation{Key: key, Enabled: false})
			return
		}
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
