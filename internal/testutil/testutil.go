// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/storage"
)

// TestKV creates a temporary SQLite key-value store that is automatically cleaned up.
func TestKV(t *testing.T) kvstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "masque-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	kv, err := kvstore.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

// TestDir creates a temporary directory with a storage.Provider rooted at it.
func TestDir(t *testing.T, name string) (string, storage.Provider) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
