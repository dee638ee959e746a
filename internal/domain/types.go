// Package domain holds the entities FlagLite manages: users, projects,
// environments, flags, flag values, and API keys, with the invariants
// between them described in each type's comment.
package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// KeyPattern matches a valid flag key: lowercase alphanumeric, digits,
// underscore and hyphen, starting with an alphanumeric, 1-64 runes.
var KeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// DefaultEnvironments are created for every new project at signup time.
var DefaultEnvironments = []string{"development", "staging", "production"}

// User owns zero or more Projects. Never deleted in scope.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Project is exclusively owned by a User. Deleting a project cascades
// to its Environments, Flags, FlagValues, and ApiKeys (not implemented
// in scope — no delete-project operation exists).
type Project struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	Name        string
	CreatedAt   time.Time
}

// Environment is a named deployment target within a Project. The pair
// (ProjectID, Name) is unique. Environments cannot be renamed once
// created: names are embedded in API keys and SDK configuration.
type Environment struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Flag is a named boolean switch scoped to a project. The pair
// (ProjectID, Key) is unique. Key must match KeyPattern.
type Flag struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Key         string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FlagValue is the per-environment state of a Flag. Invariant: a
// FlagValue row exists for every (Flag, Environment) pair in the same
// project — creating a Flag inserts one row per existing Environment,
// and creating an Environment inserts one row per existing Flag.
type FlagValue struct {
	FlagID            uuid.UUID
	EnvironmentID     uuid.UUID
	Enabled           bool
	RolloutPercentage int32
	UpdatedAt         time.Time
}

// ApiKeyKind distinguishes a project-scoped key (can manage flags and
// list environments) from an environment-scoped key (can only evaluate
// flags in that one environment).
type ApiKeyKind string

const (
	ApiKeyKindProject     ApiKeyKind = "project"
	ApiKeyKindEnvironment ApiKeyKind = "environment"
)

// ApiKey's plaintext secret is returned only once, at creation; every
// other access is by hash lookup. For KindEnvironment, EnvironmentID
// must be set and must reference an environment within ProjectID.
type ApiKey struct {
	ID            uuid.UUID
	SecretHash    string
	Prefix        string
	Kind          ApiKeyKind
	ProjectID     uuid.UUID
	EnvironmentID *uuid.UUID
	CreatedAt     time.Time
}

const (
	// ProjectKeyPrefix is the plaintext prefix of project-scoped API keys.
	ProjectKeyPrefix = "ffl_proj_"
	// EnvironmentKeyPrefix is the plaintext prefix of environment-scoped API keys.
	EnvironmentKeyPrefix = "ffl_env_"
	// MinKeySecretChars is the minimum length of the random part of a key secret.
	MinKeySecretChars = 32
)
