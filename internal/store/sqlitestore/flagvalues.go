package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

func (s *Store) GetFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT flag_id, environment_id, enabled, rollout_percentage, updated_at FROM flag_values WHERE flag_id = ? AND environment_id = ?`,
		flagID.String(), environmentID.String(),
	)
	return scanFlagValue(row)
}

// UpdateFlagValue applies whichever of enabled/rollout are non-nil,
// leaving the other column untouched, and always bumps updated_at.
// Read and write share one transaction so a concurrent partial update
// cannot interleave between them.
func (s *Store) UpdateFlagValue(ctx context.Context, flagID, environmentID uuid.UUID, enabled *bool, rollout *int32) (*domain.FlagValue, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: begin update flag value: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT flag_id, environment_id, enabled, rollout_percentage, updated_at FROM flag_values WHERE flag_id = ? AND environment_id = ?`,
		flagID.String(), environmentID.String(),
	)
	current, err := scanFlagValue(row)
	if err != nil {
		return nil, err
	}
	if enabled != nil {
		current.Enabled = *enabled
	}
	if rollout != nil {
		current.RolloutPercentage = *rollout
	}
	current.UpdatedAt = store.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE flag_values SET enabled = ?, rollout_percentage = ?, updated_at = ? WHERE flag_id = ? AND environment_id = ?`,
		boolToInt(current.Enabled), current.RolloutPercentage, formatTime(current.UpdatedAt),
		flagID.String(), environmentID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: update flag value: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlitestore: commit update flag value: %w", err)
	}
	return current, nil
}

func (s *Store) ToggleFlagValue(ctx context.Context, flagID, environmentID uuid.UUID) (*domain.FlagValue, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: begin toggle: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT flag_id, environment_id, enabled, rollout_percentage, updated_at FROM flag_values WHERE flag_id = ? AND environment_id = ?`,
		flagID.String(), environmentID.String(),
	)
	fv, err := scanFlagValue(row)
	if err != nil {
		return nil, err
	}

	fv.Enabled = !fv.Enabled
	fv.UpdatedAt = store.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE flag_values SET enabled = ?, updated_at = ? WHERE flag_id = ? AND environment_id = ?`,
		boolToInt(fv.Enabled), formatTime(fv.UpdatedAt), flagID.String(), environmentID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: toggle flag value: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlitestore: commit toggle: %w", err)
	}
	return fv, nil
}

func (s *Store) ListFlagValuesForProject(ctx context.Context, projectID uuid.UUID) ([]domain.FlagValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fv.flag_id, fv.environment_id, fv.enabled, fv.rollout_percentage, fv.updated_at
		 FROM flag_values fv
		 JOIN flags f ON f.id = fv.flag_id
		 WHERE f.project_id = ?`,
		projectID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list flag values: %w", err)
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

func scanFlagValue(row rowScanner) (*domain.FlagValue, error) {
	var fv domain.FlagValue
	var flagIDStr, envIDStr, updatedAt string
	var enabledInt int64
	if err := row.Scan(&flagIDStr, &envIDStr, &enabledInt, &fv.RolloutPercentage, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan flag value: %w", err)
	}
	flagID, err := uuid.Parse(flagIDStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad flag id %q: %w", flagIDStr, err)
	}
	envID, err := uuid.Parse(envIDStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad environment id %q: %w", envIDStr, err)
	}
	fv.FlagID = flagID
	fv.EnvironmentID = envID
	fv.Enabled = intToBool(enabledInt)
	fv.UpdatedAt = parseTime(updatedAt)
	return &fv, nil
}
