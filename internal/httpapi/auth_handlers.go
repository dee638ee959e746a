package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/TimurManjosov/flaglite/internal/service"
)

type signupRequest struct {
	Username    *string `json:"username"`
	Password    string  `json:"password"`
	ProjectName *string `json:"project_name"`
}

type signupResponse struct {
	User         service.UserView          `json:"user"`
	Token        string                    `json:"token"`
	Project      service.ProjectView       `json:"project"`
	Environments []service.EnvironmentView `json:"environments"`
	ApiKey       service.ApiKeyCreatedView `json:"api_key"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.auth.Signup(r.Context(), req.Username, req.Password, req.ProjectName)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		User:         result.User,
		Token:        result.Token,
		Project:      result.Project,
		Environments: result.Environments,
		ApiKey:       result.ApiKey,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string                    `json:"token"`
	User         service.UserView          `json:"user"`
	Project      *service.ProjectView      `json:"project,omitempty"`
	Environments []service.EnvironmentView `json:"environments,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:        result.Token,
		User:         result.User,
		Project:      result.Project,
		Environments: result.Environments,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := optionalPrincipal(r)
	user, err := s.auth.Me(r.Context(), principal)
	if err != nil {
		writeServiceError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
