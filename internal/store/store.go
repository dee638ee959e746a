// Package store defines the storage port: the capability set every
// persistence backend must implement identically. Two adapters
// satisfy it — internal/store/sqlitestore (embedded, single-writer)
// and internal/store/pgstore (networked, multi-replica) — and no code
// above this package branches on which one is active.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup or a referential parent
// (e.g. the project a flag is being created under) does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned on a uniqueness violation during create.
var ErrConflict = errors.New("store: conflict")

// Users groups user persistence operations.
type Users interface {
	CreateUser(ctx context.Context, u domain.User) error
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Projects groups project persistence operations.
type Projects interface {
	CreateProject(ctx context.Context, p domain.Project) error
	FindProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Project, error)
}

// Environments groups environment persistence operations.
type Environments interface {
	CreateEnvironment(ctx context.Context, e domain.Environment) error
	FindEnvironmentByID(ctx context.Context, id uuid.UUID) (*domain.Environment, error)
	FindEnvironmentByProjectAndName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Environment, error)
	ListEnvironmentsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Environment, error)
}

// Flags groups flag persistence operations.
type Flags interface {
	// CreateFlagWithDefaultValues inserts the flag and one FlagValue row
	// (enabled=false, rollout=100) per existing environment of the
	// project, in a single transaction.
	CreateFlagWithDefaultValues(ctx context.Context, f domain.Flag) error
	FindFlagByKey(ctx context.Context, projectID uuid.UUID, key string) (*domain.Flag, error)
	ListFlagsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Flag, error)
	// DeleteFlagByKey removes the flag and cascades to its FlagValues.
	DeleteFlagByKey(ctx context.Context, projectID uuid.UUID, key string) error
}

// FlagValues groups per-environment flag-value persistence operations.
type FlagValues interface {
	GetFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error)
	UpdateFlagValue(ctx context.Context, flagID, environmentID uuid.UUID, enabled *bool, rollout *int32) (*domain.FlagValue, error)
	// ToggleFlagValue flips Enabled and bumps UpdatedAt atomically,
	// returning the resulting row.
	ToggleFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error)
	// ListFlagValuesForProject returns every FlagValue row belonging to
	// flags in the given project, used to assemble the environments map
	// in flag listing responses without N+1 queries.
	ListFlagValuesForProject(ctx context.Context, projectID uuid.UUID) ([]domain.FlagValue, error)
}

// ApiKeys groups API key persistence operations.
type ApiKeys interface {
	// CreateApiKey stores a key record; the caller supplies the hash and
	// prefix (the plaintext never reaches storage).
	CreateApiKey(ctx context.Context, k domain.ApiKey) error
	FindApiKeyByHash(ctx context.Context, hash string) (*domain.ApiKey, error)
	ListApiKeysForProject(ctx context.Context, projectID uuid.UUID) ([]domain.ApiKey, error)
}

// Provisioning groups the composite, multi-row operations that must
// run as a single transaction. These exist because the port's
// per-entity methods above are not, by themselves, enough to express
// "all of this or none of this" across several tables.
type Provisioning interface {
	// CreateProjectWithDefaults inserts a project, its environments, and
	// one project-scoped API key in a single transaction. Used directly
	// by the project-creation service method.
	CreateProjectWithDefaults(ctx context.Context, p domain.Project, envs []domain.Environment, key domain.ApiKey) error
	// CreateUserAndProject inserts a user, a project, its environments,
	// and one project-scoped API key — all six rows — in a single
	// transaction. Used by signup, where a partial result must be
	// impossible.
	CreateUserAndProject(ctx context.Context, u domain.User, p domain.Project, envs []domain.Environment, key domain.ApiKey) error
}

// Store is the full storage port. Writes spanning multiple rows (e.g.
// a flag create that inserts one FlagValue per environment) execute as
// one transaction, implemented by each adapter internally — the port
// itself exposes only the logical, already-atomic operation.
type Store interface {
	Users
	Projects
	Environments
	Flags
	FlagValues
	ApiKeys
	Provisioning

	// RunMigrations applies schema migrations idempotently. Safe to call
	// on every startup.
	RunMigrations(ctx context.Context) error
	// Close releases resources (connection pool, file handle).
	Close() error
}

// Now is a seam for tests; adapters use it instead of calling
// time.Now().UTC() directly so entity timestamps are easy to assert on.
var Now = func() time.Time { return time.Now().UTC() }
