package testutil

import (
	"testing"

	"fastsize/internal/storage"
)

// TestDB opens a probe cache in a temp dir that is closed on cleanup.
func TestDB(t *testing.T) (*storage.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewDB(dir)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dir
}
