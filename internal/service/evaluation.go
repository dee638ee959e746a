package service

import (
	"context"
	"errors"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/bucket"
	"github.com/TimurManjosov/flaglite/internal/store"
)

// EvaluationService implements the SDK hot path: two indexed reads
// and one hash, safe under high concurrency, never mutating state.
type EvaluationService struct {
	store store.Store
}

func NewEvaluationService(s store.Store) *EvaluationService {
	return &EvaluationService{store: s}
}

// EvaluationResult is the response body for a flag evaluation.
type EvaluationResult struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// Evaluate resolves whether a flag is enabled for an optional user, in
// the environment the caller's principal is scoped to. Only an
// environment-key principal may call this. An unknown flag returns
// store.ErrNotFound (the HTTP layer answers it with 404 and
// enabled:false); a missing value row, a disabled value, or an absent
// user id against a partial rollout come out as enabled=false.
func (s *EvaluationService) Evaluate(ctx context.Context, principal *authn.Principal, flagKey, userID string) (*EvaluationResult, error) {
	if principal == nil || principal.Kind != authn.PrincipalEnvironmentKey ||
		principal.ApiKey == nil || principal.ApiKey.EnvironmentID == nil {
		return nil, ErrForbidden
	}
	projectID := principal.ApiKey.ProjectID
	environmentID := *principal.ApiKey.EnvironmentID

	flag, err := s.store.FindFlagByKey(ctx, projectID, flagKey)
	if err != nil {
		return nil, err
	}

	value, err := s.store.GetFlagValue(ctx, flag.ID, environmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &EvaluationResult{Key: flagKey, Enabled: false}, nil
		}
		return nil, err
	}

	return &EvaluationResult{Key: flagKey, Enabled: resolve(flag.Key, value.Enabled, value.RolloutPercentage, userID)}, nil
}

// resolve decides enablement from an already-loaded flag value:
// disabled short-circuits, full rollout short-circuits, anonymous
// users are never in a partial rollout, everyone else gets bucketed.
func resolve(flagKey string, enabled bool, rollout int32, userID string) bool {
	if !enabled {
		return false
	}
	if rollout >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return bucket.EnabledForUser(flagKey, userID, rollout)
}
