// Package testutil provides shared test helpers for setting up document roots and catalogs.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "docshelf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary document root accepting .pdf files.
func TestLibrary(t *testing.T) *storage.Root {
	t.Helper()
	root, err := storage.NewRoot(t.TempDir(), storage.DefaultExtension)
	if err != nil {
		t.Fatal(err)
	}
	return root
}

// WriteDocument creates name inside dir with size bytes of content.
func WriteDocument(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte("x"), size), 0o644); err != nil {
		t.Fatal(err)
	}
}

// RemoveDocument deletes name from dir.
func RemoveDocument(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}
