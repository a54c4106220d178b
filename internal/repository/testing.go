package repository

import (
	"context"
	"testing"

	"github.com/lewtec/barber/internal/store"
)

// SetupTestStore opens a migrated per-folder store in a temporary directory
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { CleanupTestStore(t, s) })
	return s
}

// CleanupTestStore closes the test store
func CleanupTestStore(t *testing.T, s *store.Store) {
	t.Helper()
	if err := s.Close(); err != nil {
		t.Errorf("failed to close test store: %v", err)
	}
}

// MustExec executes a SQL statement and fails the test if it errors
func MustExec(t *testing.T, s *store.Store, query string, args ...interface{}) {
	t.Helper()
	_, err := s.DB().ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("failed to exec query: %v", err)
	}
}
