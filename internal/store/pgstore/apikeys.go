package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/google/uuid"
)

func (s *Store) CreateApiKey(ctx context.Context, k domain.ApiKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, secret_hash, prefix, kind, project_id, environment_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		k.ID, k.SecretHash, k.Prefix, string(k.Kind), k.ProjectID, k.EnvironmentID, k.CreatedAt,
	)
	return mapWriteErr(err)
}

func (s *Store) FindApiKeyByHash(ctx context.Context, hash string) (*domain.ApiKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, secret_hash, prefix, kind, project_id, environment_id, created_at FROM api_keys WHERE secret_hash = $1`,
		hash,
	)
	return scanApiKey(row)
}

func (s *Store) ListApiKeysForProject(ctx context.Context, projectID uuid.UUID) ([]domain.ApiKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, secret_hash, prefix, kind, project_id, environment_id, created_at FROM api_keys WHERE project_id = $1 ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list api keys: %w", err)
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

func scanApiKey(row pgx.Row) (*domain.ApiKey, error) {
	var k domain.ApiKey
	var kind string
	if err := row.Scan(&k.ID, &k.SecretHash, &k.Prefix, &kind, &k.ProjectID, &k.EnvironmentID, &k.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	k.Kind = domain.ApiKeyKind(kind)
	k.CreatedAt = k.CreatedAt.UTC()
	return &k, nil
}
