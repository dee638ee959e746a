// Package sqlitestore implements the storage port over a single SQLite
// file, suitable for single-replica, serverless deployments. Booleans
// and timestamps are stored as integers and ISO-8601 strings and
// normalized at the boundary so the port behaves identically to the
// networked adapter (internal/store/pgstore).
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the embedded, single-writer adapter. SQLite serializes
// writers internally; we additionally open with a single connection so
// that "single-writer" is also true at the database/sql pool level,
// avoiding SQLITE_BUSY under concurrent writers from this process.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and returns
// a Store. Callers must call RunMigrations before using it.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "flaglite.db"
	}
	// path may already carry URI options (e.g. "flaglite.db?mode=rwc").
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := fmt.Sprintf("file:%s%s_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path, sep)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A single physical connection turns this process's writes into a
	// strict queue, which is what "single-writer" means for this adapter.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies the schema idempotently.
func (s *Store) RunMigrations(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitestore: migration failed: %w", err)
		}
	}
	return nil
}
