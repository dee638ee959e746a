package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

func (s *Store) GetFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT flag_id, environment_id, enabled, rollout_percentage, updated_at FROM flag_values WHERE flag_id = $1 AND environment_id = $2`,
		flagID, environmentID,
	)
	return scanFlagValue(row)
}

// UpdateFlagValue applies whichever of enabled/rollout are non-nil in
// a single statement, so concurrent partial updates against the same
// row serialize on its lock instead of overwriting each other.
func (s *Store) UpdateFlagValue(ctx context.Context, flagID, environmentID uuid.UUID, enabled *bool, rollout *int32) (*domain.FlagValue, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE flag_values
		 SET enabled = COALESCE($1, enabled),
		     rollout_percentage = COALESCE($2, rollout_percentage),
		     updated_at = $3
		 WHERE flag_id = $4 AND environment_id = $5
		 RETURNING flag_id, environment_id, enabled, rollout_percentage, updated_at`,
		enabled, rollout, store.Now(), flagID, environmentID,
	)
	return scanFlagValue(row)
}

// ToggleFlagValue flips enabled in place; two concurrent toggles net
// out to no change rather than racing to write the same value.
func (s *Store) ToggleFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE flag_values
		 SET enabled = NOT enabled, updated_at = $1
		 WHERE flag_id = $2 AND environment_id = $3
		 RETURNING flag_id, environment_id, enabled, rollout_percentage, updated_at`,
		store.Now(), flagID, environmentID,
	)
	return scanFlagValue(row)
}

func (s *Store) ListFlagValuesForProject(ctx context.Context, projectID uuid.UUID) ([]domain.FlagValue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fv.flag_id, fv.environment_id, fv.enabled, fv.rollout_percentage, fv.updated_at
		 FROM flag_values fv
		 JOIN flags f ON f.id = fv.flag_id
		 WHERE f.project_id = $1`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list flag values: %w", err)
	}
	defer rows.Close()

	var out []domain.FlagValue
	for rows.Next() {
		fv, err := scanFlagValue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fv)
	}
	return out, rows.Err()
}

func scanFlagValue(row pgx.Row) (*domain.FlagValue, error) {
	var fv domain.FlagValue
	if err := row.Scan(&fv.FlagID, &fv.EnvironmentID, &fv.Enabled, &fv.RolloutPercentage, &fv.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	fv.UpdatedAt = fv.UpdatedAt.UTC()
	return &fv, nil
}
