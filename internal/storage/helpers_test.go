// ABOUTME: Shared test helpers for storage backends.
// ABOUTME: Opens SQLite and in-memory Badger stores so tests can run against both.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/drivewatch/internal/models"
)

// setupTestDB creates a SQLite database in a temp directory.
func setupTestDB(t *testing.T) *SQLStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "drivewatch-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := Open(filepath.Join(tmpDir, "drivewatch.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestBadger creates an in-memory Badger store.
func setupTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := OpenBadgerInMemory()
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// forEachBackend runs fn once per storage implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestDB(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, setupTestBadger(t)) })
}

func mustUpdate(t *testing.T, repo Repository, fn func(tx Tx) error) {
	t.Helper()
	if err := repo.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func mustView(t *testing.T, repo Repository, fn func(tx Tx) error) {
	t.Helper()
	if err := repo.View(context.Background(), fn); err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func seedDriver(t *testing.T, repo Repository, username string) *models.Driver {
	t.Helper()
	d := models.NewDriver(username, username+"@example.com", models.VehicleTruck)
	mustUpdate(t, repo, func(tx Tx) error { return tx.CreateDriver(d) })
	return d
}

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
