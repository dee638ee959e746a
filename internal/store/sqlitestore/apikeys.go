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

func (s *Store) CreateApiKey(ctx context.Context, k domain.ApiKey) error {
	var envID any
	if k.EnvironmentID != nil {
		envID = k.EnvironmentID.String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, secret_hash, prefix, kind, project_id, environment_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID.String(), k.SecretHash, k.Prefix, string(k.Kind), k.ProjectID.String(), envID, formatTime(k.CreatedAt),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *Store) FindApiKeyByHash(ctx context.Context, hash string) (*domain.ApiKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, secret_hash, prefix, kind, project_id, environment_id, created_at FROM api_keys WHERE secret_hash = ?`,
		hash,
	)
	return scanApiKey(row)
}

func (s *Store) ListApiKeysForProject(ctx context.Context, projectID uuid.UUID) ([]domain.ApiKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, secret_hash, prefix, kind, project_id, environment_id, created_at FROM api_keys WHERE project_id = ? ORDER BY created_at`,
		projectID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.ApiKey
	for rows.Next() {
		k, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func scanApiKey(row rowScanner) (*domain.ApiKey, error) {
	var k domain.ApiKey
	var idStr, kindStr, projectStr, createdAt string
	var envID sql.NullString
	if err := row.Scan(&idStr, &k.SecretHash, &k.Prefix, &kindStr, &projectStr, &envID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan api key: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad api key id %q: %w", idStr, err)
	}
	projectID, err := uuid.Parse(projectStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: bad project id %q: %w", projectStr, err)
	}
	k.ID = id
	k.ProjectID = projectID
	k.Kind = domain.ApiKeyKind(kindStr)
	k.CreatedAt = parseTime(createdAt)
	if envID.Valid {
		eid, err := uuid.Parse(envID.String)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: bad environment id %q: %w", envID.String, err)
		}
		k.EnvironmentID = &eid
	}
	return &k, nil
}
