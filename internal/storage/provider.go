// Package storage resolves untrusted document names to files inside the document root.
package storage

import "github.com/starford/docshelf/internal/models"

// Validator turns an untrusted document name into a safe, existence-checked path.
type Validator interface {
	// Resolve validates name and returns the canonical path inside the root.
	// Failures are *apperr.Rejection values.
	Resolve(name string) (models.SafePath, error)
	// Join returns the catalog file path derived from a sanitized filename.
	Join(filename string) string
}

// Verify *Root satisfies Validator at compile time.
var _ Validator = (*Root)(nil)
