// Package pgstore implements the storage port over PostgreSQL via
// pgxpool, suitable for multi-replica deployments behind a load
// balancer. SQL is hand-written rather than generated: no code
// generator runs against this schema, so every query here is a plain
// string next to the method that issues it, mirroring how the
// embedded adapter (internal/store/sqlitestore) is written.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/flaglite/internal/store"
)

// Store is the networked adapter. The pool is tuned the same way
// across every service that uses pgxpool in this codebase: a bounded
// number of connections with a floor kept warm and periodic health
// checks so a half-dead connection gets recycled instead of returning
// mysterious errors under load.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses dsn, builds a tuned pgxpool, and returns a Store. It does
// not ping the database; callers should call RunMigrations (or
// pool.Ping) to confirm connectivity before serving traffic.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool's connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// RunMigrations applies the schema idempotently.
func (s *Store) RunMigrations(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: migration failed: %w", err)
		}
	}
	return nil
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapWriteErr translates pgx errors into the port's sentinel kinds.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return store.ErrConflict
		case foreignKeyViolation:
			return store.ErrNotFound
		}
	}
	return err
}

// mapReadErr translates a single-row lookup miss into ErrNotFound.
func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
