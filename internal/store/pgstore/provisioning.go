package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
)

func (s *Store) CreateProjectWithDefaults(ctx context.Context, p domain.Project, envs []domain.Environment, key domain.ApiKey) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin create project: %w", err)
	}
	defer tx.Rollback(ctx)

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
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit create project: %w", err)
	}
	return nil
}

func (s *Store) CreateUserAndProject(ctx context.Context, u domain.User, p domain.Project, envs []domain.Environment, key domain.ApiKey) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin signup: %w", err)
	}
	defer tx.Rollback(ctx)

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
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit signup: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u domain.User) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	return mapWriteErr(err)
}

func insertProject(ctx context.Context, tx pgx.Tx, p domain.Project) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO projects (id, owner_user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.OwnerUserID, p.Name, p.CreatedAt,
	)
	return mapWriteErr(err)
}

func insertApiKey(ctx context.Context, tx pgx.Tx, k domain.ApiKey) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO api_keys (id, secret_hash, prefix, kind, project_id, environment_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		k.ID, k.SecretHash, k.Prefix, string(k.Kind), k.ProjectID, k.EnvironmentID, k.CreatedAt,
	)
	return mapWriteErr(err)
}
