package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TimurManjosov/flaglite/internal/domain"
)

// CreateProjectWithDefaults inserts the project, its environments, and
// one project-scoped API key in a single transaction, so a reader never
// observes a project without its environments or its first key.
func (s *Store) CreateProjectWithDefaults(ctx context.Context, p domain.Project, envs []domain.Environment, key domain.ApiKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin create project: %w", err)
	}
	defer tx.Rollback()

	if err := insertProject(ctx, tx, p); err != nil {
		return err
	}
	for _, e := range envs {
		if err := insertEnvironment(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := insertApiKey(ctx, tx, key); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit create project: %w", err)
	}
	return nil
}

// CreateUserAndProject inserts the user, their first project, its
// environments, and a project-scoped API key — six rows — atomically,
// so signup never leaves behind a user with no project or a project
// with no key.
func (s *Store) CreateUserAndProject(ctx context.Context, u domain.User, p domain.Project, envs []domain.Environment, key domain.ApiKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin signup: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}
	if err := insertProject(ctx, tx, p); err != nil {
		return err
	}
	for _, e := range envs {
		if err := insertEnvironment(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := insertApiKey(ctx, tx, key); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit signup: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID.String(), u.Username, u.PasswordHash, formatTime(u.CreatedAt),
	)
	return mapWriteErr(err)
}

func insertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, owner_user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID.String(), p.OwnerUserID.String(), p.Name, formatTime(p.CreatedAt),
	)
	return mapWriteErr(err)
}

func insertApiKey(ctx context.Context, tx *sql.Tx, k domain.ApiKey) error {
	var envID any
	if k.EnvironmentID != nil {
		envID = k.EnvironmentID.String()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO api_keys (id, secret_hash, prefix, kind, project_id, environment_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID.String(), k.SecretHash, k.Prefix, string(k.Kind), k.ProjectID.String(), envID, formatTime(k.CreatedAt),
	)
	return mapWriteErr(err)
}
