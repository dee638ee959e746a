package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/TimurManjosov/flaglite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func projectIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeBadRequest(w, "invalid project id")
		return uuid.UUID{}, false
	}
	return id, true
}

func (s *Server) handleListFlags(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	flags, err := s.flags.ListFlags(r.Context(), principal, projectID)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

type createFlagRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	var req createFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	flag, err := s.flags.CreateFlag(r.Context(), principal, projectID, service.CreateFlagParams{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, flag)
}

func (s *Server) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	flag, err := s.flags.GetFlag(r.Context(), principal, projectID, key)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

func (s *Server) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	if err := s.flags.DeleteFlag(r.Context(), principal, projectID, key); err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFlag(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	env := r.URL.Query().Get("environment")
	if env == "" {
		writeBadRequest(w, "environment query parameter is required")
		return
	}

	result, err := s.flags.ToggleFlagValue(r.Context(), principal, projectID, key, env)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateFlagValueRequest struct {
	Enabled           *bool  `json:"enabled"`
	RolloutPercentage *int32 `json:"rollout_percentage"`
}

func (s *Server) handleUpdateFlagValue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	env := chi.URLParam(r, "env")

	var req updateFlagValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	flag, err := s.flags.UpdateFlagValue(r.Context(), principal, projectID, key, env, service.UpdateFlagValueParams{
		Enabled:           req.Enabled,
		RolloutPercentage: req.RolloutPercentage,
	})
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, flag)
}
