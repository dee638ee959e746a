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

// CreateFlagWithDefaultValues inserts the flag and one disabled,
// 100%-rollout FlagValue row per environment already defined on the
// project, so the invariant "a FlagValue exists for every (Flag,
// Environment) pair" holds the instant the flag is visible to readers.
func (s *Store) CreateFlagWithDefaultValues(ctx context.Context, f domain.Flag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin create flag: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO flags (id, project_id, key, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.ProjectID.String(), f.Key, f.Name, f.Description,
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return mapWriteErr(err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM environments WHERE project_id = ?`, f.ProjectID.String())
	if err != nil {
		return fmt.Errorf("sqlitestore: list environments for new flag: %w", err)
	}
	var envIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("sqlitestore: scan environment id: %w", err)
		}
		envIDs = append(envIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := formatTime(store.Now())
	for _, envID := range envIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO flag_values (flag_id, environment_id, enabled, rollout_percentage, updated_at) VALUES (?, ?, 0, 100, ?)`,
			f.ID.String(), envID, now,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit create flag: %w", err)
	}
	return nil
}

func (s *Store) FindFlagByKey(ctx context.Context, projectID uuid.UUID, key string) (*domain.Flag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, key, name, description, created_at, updated_at FROM flags WHERE project_id = ? AND key = ?`,
		projectID.String(), key,
	)
	return scanFlag(row)
}

func (s *Store) ListFlagsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Flag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, key, name, description, created_at, updated_at FROM flags WHERE project_id = ? ORDER BY created_at`,
		projectID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list flags: %w", err)
	}
	defer rows.Close()

	var out []domain.Flag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFlagByKey(ctx context.Context, projectID uuid.UUID, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin delete flag: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT id FROM flags WHERE project_id = ? AND key = ?`, projectID.String(), key)
	var flagID string
	if err := row.Scan(&flagID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("sqlitestore: find flag to delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM flag_values WHERE flag_id = ?`, flagID); err != nil {
		return fmt.Errorf("sqlitestore: delete flag values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flags WHERE id = ?`, flagID); err != nil {
		return fmt.Errorf("sqlitestore: delete flag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit delete flag: %w", err)
	}
	return nil
}

func scanFlag(row rowScanner) (*domain.Flag, error) {
	var f domain.Flag
	var idStr, projectStr, createdAt, updatedAt string
	if err := row.Scan(&idStr, &projectStr, &f.Key, &f.Name, &f.Description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan flag: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad flag id %q: %w", idStr, err)
	}
	projectID, err := uuid.Parse(projectStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad project id %q: %w", projectStr, err)
	}
	f.ID = id
	f.ProjectID = projectID
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}
