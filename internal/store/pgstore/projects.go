package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/google/uuid"
)

func (s *Store) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, owner_user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.OwnerUserID, p.Name, p.CreatedAt,
	)
	return mapWriteErr(err)
}

func (s *Store) FindProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_user_id, name, created_at FROM projects WHERE id = $1`,
		id,
	)
	return scanProject(row)
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_user_id, name, created_at FROM projects WHERE owner_user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
