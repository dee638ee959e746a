package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

func (s *Store) CreateEnvironment(ctx context.Context, e domain.Environment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin create environment: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEnvironment(ctx, tx, e); err != nil {
		return err
	}
	if err := insertFlagValuesForNewEnvironment(ctx, tx, e.ProjectID, e.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit create environment: %w", err)
	}
	return nil
}

func insertEnvironment(ctx context.Context, tx pgx.Tx, e domain.Environment) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO environments (id, project_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		e.ID, e.ProjectID, e.Name, e.CreatedAt,
	)
	return mapWriteErr(err)
}

func insertFlagValuesForNewEnvironment(ctx context.Context, tx pgx.Tx, projectID, environmentID uuid.UUID) error {
	rows, err := tx.Query(ctx, `SELECT id FROM flags WHERE project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("pgstore: list flags for new environment: %w", err)
	}
	var flagIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("pgstore: scan flag id: %w", err)
		}
		flagIDs = append(flagIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := store.Now()
	for _, flagID := range flagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO flag_values (flag_id, environment_id, enabled, rollout_percentage, updated_at) VALUES ($1, $2, false, 100, $3)`,
			flagID, environmentID, now,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

func (s *Store) FindEnvironmentByID(ctx context.Context, id uuid.UUID) (*domain.Environment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE id = $1`,
		id,
	)
	return scanEnvironment(row)
}

func (s *Store) FindEnvironmentByProjectAndName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Environment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE project_id = $1 AND name = $2`,
		projectID, name,
	)
	return scanEnvironment(row)
}

func (s *Store) ListEnvironmentsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Environment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE project_id = $1 ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list environments: %w", err)
	}
	defer rows.Close()

	var out []domain.Environment
	for rows.Next() {
		e, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEnvironment(row pgx.Row) (*domain.Environment, error) {
	var e domain.Environment
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Name, &e.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
