package service

import (
	"time"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/google/uuid"
)

// The View types below are the JSON shapes returned across the HTTP
// surface. They exist so internal/httpapi never touches
// internal/domain or internal/store entity types directly — every
// boundary crossing goes through a service method returning one of
// these.

type UserView struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func userView(u domain.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

type ProjectView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func projectView(p domain.Project) ProjectView {
	return ProjectView{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
}

type EnvironmentView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func environmentView(e domain.Environment) EnvironmentView {
	return EnvironmentView{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt}
}

func environmentViews(envs []domain.Environment) []EnvironmentView {
	out := make([]EnvironmentView, len(envs))
	for i, e := range envs {
		out[i] = environmentView(e)
	}
	return out
}

// ApiKeyCreatedView is only ever returned once, at creation time, and
// is the sole place the plaintext secret appears.
type ApiKeyCreatedView struct {
	ID     uuid.UUID `json:"id"`
	Key    string    `json:"key"`
	Prefix string    `json:"prefix"`
}

// FlagEnvironmentState is the per-environment slice of a flag's value,
// keyed by environment name in FlagView.Environments.
type FlagEnvironmentState struct {
	Enabled           bool  `json:"enabled"`
	RolloutPercentage int32 `json:"rollout"`
}

type FlagView struct {
	Key          string                          `json:"key"`
	Name         string                          `json:"name"`
	Description  string                          `json:"description,omitempty"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
	Environments map[string]FlagEnvironmentState `json:"environments"`
}
