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

func (s *Store) CreateEnvironment(ctx context.Context, e domain.Environment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin create environment: %w", err)
	}
	defer tx.Rollback()

	if err := insertEnvironment(ctx, tx, e); err != nil {
		return err
	}
	if err := insertFlagValuesForNewEnvironment(ctx, tx, e.ProjectID, e.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit create environment: %w", err)
	}
	return nil
}

func insertEnvironment(ctx context.Context, tx *sql.Tx, e domain.Environment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO environments (id, project_id, name, created_at) VALUES (?, ?, ?, ?)`,
		e.ID.String(), e.ProjectID.String(), e.Name, formatTime(e.CreatedAt),
	)
	return mapWriteErr(err)
}

// insertFlagValuesForNewEnvironment preserves the invariant that a
// FlagValue row exists for every (Flag, Environment) pair: a new
// environment inherits a disabled, 100%-rollout row for every flag
// already defined on the project.
func insertFlagValuesForNewEnvironment(ctx context.Context, tx *sql.Tx, projectID, environmentID uuid.UUID) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM flags WHERE project_id = ?`, projectID.String())
	if err != nil {
		return fmt.Errorf("sqlitestore: list flags for new environment: %w", err)
	}
	var flagIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("sqlitestore: scan flag id: %w", err)
		}
		flagIDs = append(flagIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := formatTime(store.Now())
	for _, flagID := range flagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO flag_values (flag_id, environment_id, enabled, rollout_percentage, updated_at) VALUES (?, ?, 0, 100, ?)`,
			flagID, environmentID.String(), now,
		)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

func (s *Store) FindEnvironmentByID(ctx context.Context, id uuid.UUID) (*domain.Environment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE id = ?`,
		id.String(),
	)
	return scanEnvironment(row)
}

func (s *Store) FindEnvironmentByProjectAndName(ctx context.Context, projectID uuid.UUID, name string) (*domain.Environment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE project_id = ? AND name = ?`,
		projectID.String(), name,
	)
	return scanEnvironment(row)
}

func (s *Store) ListEnvironmentsForProject(ctx context.Context, projectID uuid.UUID) ([]domain.Environment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, created_at FROM environments WHERE project_id = ? ORDER BY created_at`,
		projectID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list environments: %w", err)
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

func scanEnvironment(row rowScanner) (*domain.Environment, error) {
	var e domain.Environment
	var idStr, projectStr, createdAt string
	if err := row.Scan(&idStr, &projectStr, &e.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan environment: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad environment id %q: %w", idStr, err)
	}
	projectID, err := uuid.Parse(projectStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad project id %q: %w", projectStr, err)
	}
	e.ID = id
	e.ProjectID = projectID
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}
