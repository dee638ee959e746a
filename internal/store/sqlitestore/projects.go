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

func (s *Store) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, owner_user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID.String(), p.OwnerUserID.String(), p.Name, formatTime(p.CreatedAt),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Store) FindProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, name, created_at FROM projects WHERE id = ?`,
		id.String(),
	)
	return scanProject(row)
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_user_id, name, created_at FROM projects WHERE owner_user_id = ? ORDER BY created_at`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list projects: %w", err)
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

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var idStr, ownerStr, createdAt string
	if err := row.Scan(&idStr, &ownerStr, &p.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan project: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad project id %q: %w", idStr, err)
	}
	owner, err := uuid.Parse(ownerStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad owner id %q: %w", ownerStr, err)
	}
	p.ID = id
	p.OwnerUserID = owner
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
