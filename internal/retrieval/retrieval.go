// Package retrieval resolves an untrusted document name to a catalog entry and a
// verified on-disk path.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/storage"
)

// Result pairs a catalog entry with the validated file location.
type Result struct {
	Entry models.CatalogEntry
	Path  models.SafePath
}

// Facade serves document lookups. It only reads.
type Facade struct {
	validator storage.Validator
	store     catalog.Reader
	logger    *slog.Logger
}

// New creates a Facade.
func New(validator storage.Validator, store catalog.Reader, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{validator: validator, store: store, logger: logger}
}

// Retrieve validates name and returns its catalog entry. A file that exists on
// disk but has no entry is rejected as not found in the catalog layer.
func (f *Facade) Retrieve(ctx context.Context, name string) (*Result, error) {
	sp, err := f.validator.Resolve(name)
	if err != nil {
		f.logRejection(err)
		return nil, err
	}

	entry, err := f.store.GetByFilename(ctx, sp.Filename)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			rej := apperr.Reject(apperr.ErrNotFound, name, apperr.LayerCatalog, "no catalog entry")
			f.logRejection(rej)
			return nil, rej
		}
		return nil, fmt.Errorf("retrieval: lookup %s: %w", sp.Filename, err)
	}
	return &Result{Entry: *entry, Path: sp}, nil
}

func (f *Facade) logRejection(err error) {
	var rej *apperr.Rejection
	if !errors.As(err, &rej) {
		return
	}
	f.logger.Debug("retrieval: rejected",
		slog.String("name", rej.Name),
		slog.String("kind", apperr.KindOf(rej)),
		slog.String("layer", string(rej.Layer)),
		slog.String("detail", rej.Detail))
}
