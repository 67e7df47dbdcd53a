package testutil

import (
	"path/filepath"
	"testing"

	"github.com/seelabs/xrpl-probe/internal/storage"
)

// NewTestStore opens a SQLite collection database in a temporary directory.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *storage.Store {
	t.Helper()
	return OpenTestStore(t, filepath.Join(t.TempDir(), "perf.db"))
}

// OpenTestStore opens the SQLite database at path. Closing it early is fine;
// the cleanup close is then a no-op.
func OpenTestStore(t *testing.T, path string) *storage.Store {
	t.Helper()

	ctx, cancel := NewTestContext()
	defer cancel()

	store, err := storage.Open(ctx, storage.Options{
		Driver: storage.DriverSQLite,
		Path:   path,
		Logger: NewTestLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test store: %v", err)
		}
	})
	return store
}
