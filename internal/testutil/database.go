// Package testutil provides shared fixtures for DreamBuilder tests: migrated
// SQLite storage, profile builders and a wired in-memory environment.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/dreambuilder/internal/storage"
)

// TestDB represents a migrated test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Path    string
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	// Snapshot is saved right after migration when set.
	Snapshot *storage.Snapshot
	// OnDisk places the database in t.TempDir() instead of memory, which
	// backups require.
	OnDisk bool
}

// SetupTestDB creates an in-memory, migrated database closed at test cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := ":memory:"
	if opts.OnDisk {
		path = filepath.Join(t.TempDir(), "dreambuilder.db")
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if opts.Snapshot != nil {
		if _, err := store.SaveSnapshot(ctx, opts.Snapshot, "test seed"); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}
	}

	return &TestDB{Storage: store, Path: path, t: t}
}

// MustLoad returns the stored snapshot or fails the test.
func (db *TestDB) MustLoad() *storage.Snapshot {
	db.t.Helper()
	snap, err := db.Storage.LoadSnapshot(context.Background(), nil)
	if err != nil {
		db.t.Fatalf("failed to load snapshot: %v", err)
	}
	return snap
}
