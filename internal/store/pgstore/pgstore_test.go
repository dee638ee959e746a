package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/TimurManjosov/flaglite/internal/store/storetest"
)

// TestConformance runs the shared storage conformance suite against a
// real Postgres instance. It requires FLAGLITE_TEST_POSTGRES_URL to
// point at a disposable database and is skipped otherwise, since CI
// environments without a Postgres service should still pass.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("FLAGLITE_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("FLAGLITE_TEST_POSTGRES_URL not set, skipping postgres conformance suite")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { s.Close() })

		if err := s.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations: %v", err)
		}
		t.Cleanup(func() { truncateAll(t, s) })
		return s
	})
}

func truncateAll(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE TABLE api_keys, flag_values, flags, environments, projects, users CASCADE`,
	)
	if err != nil {
		t.Errorf("truncate test data: %v", err)
	}
}
