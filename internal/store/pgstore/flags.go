package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

func (s *Store) CreateFlagWithDefaultValues(ctx context.Context, f domain.Flag) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin create flag: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO flags (id, project_id, key, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.ProjectID, f.Key, f.Name, f.Description, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr(err)
	}

	rows, err := tx.Query(ctx, `SELECT id FROM environments WHERE project_id = $1`, f.ProjectID)
	if err != nil {
		return fmt.Errorf("pgstore: list environments for new flag: %w", err)
	}
	var envIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("pgstore: scan environment id: %w", err)
		}
		envIDs = append(envIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := store.Now()
	for _, envID := range envIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO flag_values (flag_id, environment_id, enabled, rollout_percentage, updated_at) VALUES ($1, $2, false, 100, $3)`,
			f.ID, envID, now,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit create flag: %w", err)
	}
	return nil
}

func (s *Store) FindFlagByKey(ctx context.Context, projectID uuid.UUID, key string) (*domain.Flag, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, key, name, description, created_at, updated_at FROM flags WHERE project_id = $1 AND key = $2`,
		projectID, key,
	)
	return scanFlag(row)
}

func (s *Store) ListFlagsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Flag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, key, name, description, created_at, updated_at FROM flags WHERE project_id = $1 ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list flags: %w", err)
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin delete flag: %w", err)
	}
	defer tx.Rollback(ctx)

	var flagID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM flags WHERE project_id = $1 AND key = $2`, projectID, key).Scan(&flagID)
	if err != nil {
		return mapReadErr(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM flag_values WHERE flag_id = $1`, flagID); err != nil {
		return fmt.Errorf("pgstore: delete flag values: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flags WHERE id = $1`, flagID); err != nil {
		return fmt.Errorf("pgstore: delete flag: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit delete flag: %w", err)
	}
	return nil
}

func scanFlag(row pgx.Row) (*domain.Flag, error) {
	var f domain.Flag
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Key, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}
