// Package storetest is a conformance suite shared by every storage
// adapter. Running it against both sqlitestore and pgstore is how we
// keep the two backends behaviorally identical: any new store method
// gets one test here instead of two copies in each adapter package.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// Run exercises the store port's user, project, environment, flag,
// flag-value, and API-key operations against a freshly migrated, empty
// backend produced by newStore; not every port method has a case of its
// own (e.g. FindEnvironmentByID, ListFlagsForProject). Call it once per
// adapter from that adapter's own _test.go, e.g.:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store { ... })
//	}
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("UserCreateAndFind", func(t *testing.T) { testUserCreateAndFind(t, newStore(t)) })
	t.Run("UserUsernameIsUniqueCaseInsensitive", func(t *testing.T) { testUserUniqueness(t, newStore(t)) })
	t.Run("ProjectProvisioningCreatesAllRows", func(t *testing.T) { testCreateProjectWithDefaults(t, newStore(t)) })
	t.Run("SignupCreatesUserAndProject", func(t *testing.T) { testCreateUserAndProject(t, newStore(t)) })
	t.Run("FlagCreateSeedsFlagValues", func(t *testing.T) { testCreateFlagWithDefaultValues(t, newStore(t)) })
	t.Run("NewEnvironmentSeedsFlagValues", func(t *testing.T) { testNewEnvironmentSeedsFlagValues(t, newStore(t)) })
	t.Run("FlagValueUpdateAndToggle", func(t *testing.T) { testFlagValueUpdateAndToggle(t, newStore(t)) })
	t.Run("FlagDeleteCascades", func(t *testing.T) { testFlagDeleteCascades(t, newStore(t)) })
	t.Run("ApiKeyLookupByHash", func(t *testing.T) { testApiKeyLookupByHash(t, newStore(t)) })
	t.Run("NotFoundIsErrNotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func mustNewEnvs(projectID uuid.UUID) []domain.Environment {
	now := time.Now().UTC()
	envs := make([]domain.Environment, len(domain.DefaultEnvironments))
	for i, name := range domain.DefaultEnvironments {
		envs[i] = domain.Environment{ID: uuid.New(), ProjectID: projectID, Name: name, CreatedAt: now}
	}
	return envs
}

func testUserCreateAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := domain.User{ID: uuid.New(), Username: "quiet-falcon", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.FindUserByUsername(ctx, "QUIET-FALCON")
	if err != nil {
		t.Fatalf("FindUserByUsername (case-insensitive): %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %s, want %s", got.ID, u.ID)
	}

	byID, err := s.FindUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if byID.Username != u.Username {
		t.Errorf("got username %q, want %q", byID.Username, u.Username)
	}
}

func testUserUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	u1 := domain.User{ID: uuid.New(), Username: "brave-otter", PasswordHash: "h1", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, u1); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u2 := domain.User{ID: uuid.New(), Username: "Brave-Otter", PasswordHash: "h2", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, u2); err != store.ErrConflict {
		t.Fatalf("CreateUser case-insensitive duplicate: got %v, want ErrConflict", err)
	}
}

func testCreateProjectWithDefaults(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := domain.User{ID: uuid.New(), Username: "careful-heron", PasswordHash: "h", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	p := domain.Project{ID: uuid.New(), OwnerUserID: owner.ID, Name: "proj", CreatedAt: time.Now().UTC()}
	envs := mustNewEnvs(p.ID)
	key := domain.ApiKey{ID: uuid.New(), SecretHash: "keyhash1", Prefix: domain.ProjectKeyPrefix, Kind: domain.ApiKeyKindProject, ProjectID: p.ID, CreatedAt: time.Now().UTC()}

	if err := s.CreateProjectWithDefaults(ctx, p, envs, key); err != nil {
		t.Fatalf("CreateProjectWithDefaults: %v", err)
	}

	gotEnvs, err := s.ListEnvironmentsForProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListEnvironmentsForProject: %v", err)
	}
	if len(gotEnvs) != len(domain.DefaultEnvironments) {
		t.Fatalf("got %d environments, want %d", len(gotEnvs), len(domain.DefaultEnvironments))
	}

	keys, err := s.ListApiKeysForProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListApiKeysForProject: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d api keys, want 1", len(keys))
	}
}

func testCreateUserAndProject(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := domain.User{ID: uuid.New(), Username: "gentle-wren", PasswordHash: "h", CreatedAt: time.Now().UTC()}
	p := domain.Project{ID: uuid.New(), OwnerUserID: u.ID, Name: "gentle-wren's project", CreatedAt: time.Now().UTC()}
	envs := mustNewEnvs(p.ID)
	key := domain.ApiKey{ID: uuid.New(), SecretHash: "keyhash2", Prefix: domain.ProjectKeyPrefix, Kind: domain.ApiKeyKindProject, ProjectID: p.ID, CreatedAt: time.Now().UTC()}

	if err := s.CreateUserAndProject(ctx, u, p, envs, key); err != nil {
		t.Fatalf("CreateUserAndProject: %v", err)
	}

	if _, err := s.FindUserByID(ctx, u.ID); err != nil {
		t.Errorf("FindUserByID after signup: %v", err)
	}
	projects, err := s.ListProjectsForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}
}

func testCreateFlagWithDefaultValues(t *testing.T, s store.Store) {
	ctx := context.Background()
	p, envs := seedProject(t, s)

	f := domain.Flag{ID: uuid.New(), ProjectID: p.ID, Key: "new-checkout", Name: "New Checkout", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.CreateFlagWithDefaultValues(ctx, f); err != nil {
		t.Fatalf("CreateFlagWithDefaultValues: %v", err)
	}

	for _, e := range envs {
		fv, err := s.GetFlagValue(ctx, f.ID, e.ID)
		if err != nil {
			t.Fatalf("GetFlagValue(%s): %v", e.Name, err)
		}
		if fv.Enabled {
			t.Errorf("new flag value for %s should default disabled", e.Name)
		}
		if fv.RolloutPercentage != 100 {
			t.Errorf("new flag value for %s should default to 100%% rollout, got %d", e.Name, fv.RolloutPercentage)
		}
	}
}

func testNewEnvironmentSeedsFlagValues(t *testing.T, s store.Store) {
	ctx := context.Background()
	p, _ := seedProject(t, s)

	f := domain.Flag{ID: uuid.New(), ProjectID: p.ID, Key: "late-flag", Name: "Late Flag", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.CreateFlagWithDefaultValues(ctx, f); err != nil {
		t.Fatalf("CreateFlagWithDefaultValues: %v", err)
	}

	newEnv := domain.Environment{ID: uuid.New(), ProjectID: p.ID, Name: "canary", CreatedAt: time.Now().UTC()}
	if err := s.CreateEnvironment(ctx, newEnv); err != nil {
		t.Fatalf("CreateEnvironment: %v", err)
	}

	fv, err := s.GetFlagValue(ctx, f.ID, newEnv.ID)
	if err != nil {
		t.Fatalf("GetFlagValue for new environment: %v", err)
	}
	if fv.Enabled || fv.RolloutPercentage != 100 {
		t.Errorf("flag value seeded for new environment should be disabled/100%%, got enabled=%v rollout=%d", fv.Enabled, fv.RolloutPercentage)
	}
}

func testFlagValueUpdateAndToggle(t *testing.T, s store.Store) {
	ctx := context.Background()
	p, envs := seedProject(t, s)
	f := domain.Flag{ID: uuid.New(), ProjectID: p.ID, Key: "beta-banner", Name: "Beta Banner", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.CreateFlagWithDefaultValues(ctx, f); err != nil {
		t.Fatalf("CreateFlagWithDefaultValues: %v", err)
	}
	env := envs[0]

	enabled := true
	rollout := int32(25)
	fv, err := s.UpdateFlagValue(ctx, f.ID, env.ID, &enabled, &rollout)
	if err != nil {
		t.Fatalf("UpdateFlagValue: %v", err)
	}
	if !fv.Enabled || fv.RolloutPercentage != 25 {
		t.Fatalf("got enabled=%v rollout=%d, want true/25", fv.Enabled, fv.RolloutPercentage)
	}

	toggled, err := s.ToggleFlagValue(ctx, f.ID, env.ID)
	if err != nil {
		t.Fatalf("ToggleFlagValue: %v", err)
	}
	if toggled.Enabled {
		t.Errorf("toggle should have flipped enabled to false")
	}
	if toggled.RolloutPercentage != 25 {
		t.Errorf("toggle must not disturb rollout percentage, got %d", toggled.RolloutPercentage)
	}
}

func testFlagDeleteCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	p, envs := seedProject(t, s)
	f := domain.Flag{ID: uuid.New(), ProjectID: p.ID, Key: "to-delete", Name: "To Delete", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.CreateFlagWithDefaultValues(ctx, f); err != nil {
		t.Fatalf("CreateFlagWithDefaultValues: %v", err)
	}

	if err := s.DeleteFlagByKey(ctx, p.ID, f.Key); err != nil {
		t.Fatalf("DeleteFlagByKey: %v", err)
	}

	if _, err := s.FindFlagByKey(ctx, p.ID, f.Key); err != store.ErrNotFound {
		t.Errorf("FindFlagByKey after delete: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetFlagValue(ctx, f.ID, envs[0].ID); err != store.ErrNotFound {
		t.Errorf("GetFlagValue after delete: got %v, want ErrNotFound", err)
	}
}

func testApiKeyLookupByHash(t *testing.T, s store.Store) {
	ctx := context.Background()
	p, _ := seedProject(t, s)

	k := domain.ApiKey{ID: uuid.New(), SecretHash: "distinct-hash", Prefix: domain.ProjectKeyPrefix, Kind: domain.ApiKeyKindProject, ProjectID: p.ID, CreatedAt: time.Now().UTC()}
	if err := s.CreateApiKey(ctx, k); err != nil {
		t.Fatalf("CreateApiKey: %v", err)
	}

	got, err := s.FindApiKeyByHash(ctx, "distinct-hash")
	if err != nil {
		t.Fatalf("FindApiKeyByHash: %v", err)
	}
	if got.ID != k.ID {
		t.Errorf("got key %s, want %s", got.ID, k.ID)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.FindUserByID(ctx, uuid.New()); err != store.ErrNotFound {
		t.Errorf("FindUserByID on missing user: got %v, want ErrNotFound", err)
	}
	if _, err := s.FindProjectByID(ctx, uuid.New()); err != store.ErrNotFound {
		t.Errorf("FindProjectByID on missing project: got %v, want ErrNotFound", err)
	}
}

func seedProject(t *testing.T, s store.Store) (domain.Project, []domain.Environment) {
	t.Helper()
	ctx := context.Background()
	owner := domain.User{ID: uuid.New(), Username: "seed-user-" + uuid.New().String(), PasswordHash: "h", CreatedAt: time.Now().UTC()}
	if err := s.CreateUser(ctx, owner); err != nil {
		t.Fatalf("seedProject CreateUser: %v", err)
	}
	p := domain.Project{ID: uuid.New(), OwnerUserID: owner.ID, Name: "seed project", CreatedAt: time.Now().UTC()}
	envs := mustNewEnvs(p.ID)
	key := domain.ApiKey{ID: uuid.New(), SecretHash: "seed-hash-" + uuid.New().String(), Prefix: domain.ProjectKeyPrefix, Kind: domain.ApiKeyKindProject, ProjectID: p.ID, CreatedAt: time.Now().UTC()}
	if err := s.CreateProjectWithDefaults(ctx, p, envs, key); err != nil {
		t.Fatalf("seedProject CreateProjectWithDefaults: %v", err)
	}
	return p, envs
}
