// Package catalog persists catalog entries keyed by filename.
package catalog

import (
	"context"

	"github.com/starford/docshelf/internal/models"
)

// Reader is the read side of the catalog, used by retrieval.
type Reader interface {
	// GetAll returns every entry ordered by date added, newest first.
	GetAll(ctx context.Context) ([]models.CatalogEntry, error)
	// GetByFilename returns the entry for name or apperr.ErrNotFound.
	GetByFilename(ctx context.Context, name string) (*models.CatalogEntry, error)
}

// Store is the catalog contract consumed by the synchronizer and the metadata
// edit path. Every operation is atomic per entry.
type Store interface {
	Reader
	// Insert adds a new entry. DateAdded and LastModified default to now.
	// Returns apperr.ErrDuplicateKey if the filename is already present.
	Insert(ctx context.Context, e models.CatalogEntry) (*models.CatalogEntry, error)
	// Update applies u to the entry for filename or returns apperr.ErrNotFound.
	// DateAdded is never changed.
	Update(ctx context.Context, filename string, u models.EntryUpdate) (*models.CatalogEntry, error)
	// Delete removes the entry for filename or returns apperr.ErrNotFound.
	Delete(ctx context.Context, filename string) error
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)
