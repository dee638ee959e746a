package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TimurManjosov/flaglite/internal/service"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// errorBody is the only error shape clients ever see: a stable
// machine-readable code plus a human message, nothing backend-specific.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Stable error codes; clients are expected to switch on these.
const (
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeValidationError = "validation_error"
	codeInternal        = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeErrorCode(w, http.StatusBadRequest, codeBadRequest, message)
}

func writeUnauthorized(w http.ResponseWriter) {
	// Uniform message: presence of an account must not be leaked.
	writeErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "authentication required or invalid")
}

// writeServiceError maps a domain/store error returned by
// internal/service into its HTTP status and error body. For 500s the
// full detail goes only to the structured log, keyed by the same
// request id the response body echoes, so an operator can join the
// two without the client ever seeing backend internals.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var validationErr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, service.ErrForbidden):
		writeErrorCode(w, http.StatusForbidden, codeForbidden, "not permitted for this principal")
	case errors.Is(err, store.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, store.ErrConflict):
		writeErrorCode(w, http.StatusConflict, codeConflict, "resource already exists")
	case errors.As(err, &validationErr):
		writeErrorCode(w, http.StatusUnprocessableEntity, codeValidationError, validationMessage(validationErr))
	default:
		requestID := middleware.GetReqID(r.Context())
		logger.Error().Err(err).Str("request_id", requestID).Msg("unhandled backend error")
		writeErrorCode(w, http.StatusInternalServerError, codeInternal, "internal error, request id "+requestID)
	}
}

func validationMessage(err *service.ValidationError) string {
	for field, msg := range err.Fields {
		return field + ": " + msg
	}
	return "validation failed"
}
