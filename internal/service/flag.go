package service

import (
	"context"
	"errors"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// FlagService implements the flag lifecycle: create, list, get,
// per-environment update, toggle, delete.
// Every method requires a user or project-key principal scoped to the
// target project; environment keys are rejected since they can only
// evaluate, not manage.
type FlagService struct {
	store store.Store
}

func NewFlagService(s store.Store) *FlagService {
	return &FlagService{store: s}
}

// CreateFlagParams is the decoded request body for create_flag.
type CreateFlagParams struct {
	Key         string
	Name        string
	Description string
}

// CreateFlag validates the key and inserts the flag plus one disabled,
// 100%-rollout FlagValue row per environment, in a single transaction.
func (s *FlagService) CreateFlag(ctx context.Context, principal *authn.Principal, projectID uuid.UUID, params CreateFlagParams) (*FlagView, error) {
	if err := s.authorizeManage(ctx, principal, projectID); err != nil {
		return nil, err
	}
	if err := validateFlagKey(params.Key); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, newValidationError("name", "must not be empty")
	}

	now := store.Now()
	flag := domain.Flag{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Key:         params.Key,
		Name:        params.Name,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFlagWithDefaultValues(ctx, flag); err != nil {
		return nil, err
	}

	return s.GetFlag(ctx, principal, projectID, flag.Key)
}

// ListFlags returns every flag in the project joined with its
// per-environment state.
func (s *FlagService) ListFlags(ctx context.Context, principal *authn.Principal, projectID uuid.UUID) ([]FlagView, error) {
	if err := authorizeProjectAccess(ctx, s.store, principal, projectID); err != nil {
		return nil, err
	}

	flags, err := s.store.ListFlagsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	envs, err := s.store.ListEnvironmentsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	values, err := s.store.ListFlagValuesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	envNameByID := make(map[uuid.UUID]string, len(envs))
	for _, e := range envs {
		envNameByID[e.ID] = e.Name
	}
	valuesByFlag := make(map[uuid.UUID]map[string]FlagEnvironmentState, len(flags))
	for _, v := range values {
		envName, ok := envNameByID[v.EnvironmentID]
		if !ok {
			continue
		}
		if valuesByFlag[v.FlagID] == nil {
			valuesByFlag[v.FlagID] = make(map[string]FlagEnvironmentState, len(envs))
		}
		valuesByFlag[v.FlagID][envName] = FlagEnvironmentState{Enabled: v.Enabled, RolloutPercentage: v.RolloutPercentage}
	}

	out := make([]FlagView, len(flags))
	for i, f := range flags {
		out[i] = flagView(f, valuesByFlag[f.ID])
	}
	return out, nil
}

// GetFlag returns a single flag joined with its per-environment state.
func (s *FlagService) GetFlag(ctx context.Context, principal *authn.Principal, projectID uuid.UUID, key string) (*FlagView, error) {
	if err := authorizeProjectAccess(ctx, s.store, principal, projectID); err != nil {
		return nil, err
	}

	flag, err := s.store.FindFlagByKey(ctx, projectID, key)
	if err != nil {
		return nil, err
	}
	envs, err := s.store.ListEnvironmentsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	states := make(map[string]FlagEnvironmentState, len(envs))
	for _, e := range envs {
		fv, err := s.store.GetFlagValue(ctx, flag.ID, e.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		states[e.Name] = FlagEnvironmentState{Enabled: fv.Enabled, RolloutPercentage: fv.RolloutPercentage}
	}

	view := flagView(*flag, states)
	return &view, nil
}

// UpdateFlagValueParams is the decoded PATCH body; nil fields are left
// untouched.
type UpdateFlagValueParams struct {
	Enabled           *bool
	RolloutPercentage *int32
}

// UpdateFlagValue applies a partial update to one environment's value.
func (s *FlagService) UpdateFlagValue(ctx context.Context, principal *authn.Principal, projectID uuid.UUID, key, envName string, params UpdateFlagValueParams) (*FlagView, error) {
	if err := s.authorizeManage(ctx, principal, projectID); err != nil {
		return nil, err
	}
	if params.RolloutPercentage != nil {
		if *params.RolloutPercentage < 0 || *params.RolloutPercentage > 100 {
			return nil, newValidationError("rollout_percentage", "must be between 0 and 100")
		}
	}

	flag, env, err := s.findFlagAndEnv(ctx, projectID, key, envName)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.UpdateFlagValue(ctx, flag.ID, env.ID, params.Enabled, params.RolloutPercentage); err != nil {
		return nil, err
	}
	return s.GetFlag(ctx, principal, projectID, key)
}

// ToggleResult is the response body for a toggle call.
type ToggleResult struct {
	Key         string `json:"key"`
	Environment string `json:"environment"`
	Enabled     bool   `json:"enabled"`
}

// ToggleFlagValue atomically flips a flag value's enabled state.
func (s *FlagService) ToggleFlagValue(ctx context.Context, principal *authn.Principal, projectID uuid.UUID, key, envName string) (*ToggleResult, error) {
	if err := s.authorizeManage(ctx, principal, projectID); err != nil {
		return nil, err
	}

	flag, env, err := s.findFlagAndEnv(ctx, projectID, key, envName)
	if err != nil {
		return nil, err
	}

	fv, err := s.store.ToggleFlagValue(ctx, flag.ID, env.ID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Key: key, Environment: envName, Enabled: fv.Enabled}, nil
}

// DeleteFlag removes a flag and its FlagValues.
func (s *FlagService) DeleteFlag(ctx context.Context, principal *authn.Principal, projectID uuid.UUID, key string) error {
	if err := s.authorizeManage(ctx, principal, projectID); err != nil {
		return err
	}
	return s.store.DeleteFlagByKey(ctx, projectID, key)
}

// authorizeManage additionally rejects environment-key principals,
// which may only evaluate.
func (s *FlagService) authorizeManage(ctx context.Context, principal *authn.Principal, projectID uuid.UUID) error {
	if principal != nil && principal.Kind == authn.PrincipalEnvironmentKey {
		return ErrForbidden
	}
	return authorizeProjectAccess(ctx, s.store, principal, projectID)
}

func (s *FlagService) findFlagAndEnv(ctx context.Context, projectID uuid.UUID, key, envName string) (*domain.Flag, *domain.Environment, error) {
	flag, err := s.store.FindFlagByKey(ctx, projectID, key)
	if err != nil {
		return nil, nil, err
	}
	env, err := s.store.FindEnvironmentByProjectAndName(ctx, projectID, envName)
	if err != nil {
		return nil, nil, err
	}
	return flag, env, nil
}

func validateFlagKey(key string) error {
	if key == "" || len(key) > 64 || !domain.KeyPattern.MatchString(key) {
		return newValidationError("key", "must match ^[a-z0-9][a-z0-9_-]{0,63}$")
	}
	return nil
}

func flagView(f domain.Flag, envs map[string]FlagEnvironmentState) FlagView {
	if envs == nil {
		envs = map[string]FlagEnvironmentState{}
	}
	return FlagView{
		Key:          f.Key,
		Name:         f.Name,
		Description:  f.Description,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
		Environments: envs,
	}
}
