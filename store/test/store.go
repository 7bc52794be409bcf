// Package test provides store helpers for tests in other packages.
package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
	"github.com/PheelaV/kr-notebook-sub000/store"
	"github.com/PheelaV/kr-notebook-sub000/store/db"
)

// NewTestingStore creates a migrated store backed by a fresh SQLite database
// in a per-test temporary directory.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := GetTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(driver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return ts
}

// GetTestingProfile returns a profile pointing at an isolated data dir.
func GetTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "test",
		Data:   dir,
		Driver: getDriverFromEnv(),
		DSN:    filepath.Join(dir, "krnote_test.db"),
	}
	if p.Driver == "postgres" {
		p.DSN = os.Getenv("POSTGRES_TEST_DSN")
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("KRNOTE_TEST_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
