package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/models"
)

// DefaultExtension is the accepted document extension when none is configured.
const DefaultExtension = ".pdf"

// Root is the document root (sandbox). It holds no mutable state after construction.
type Root struct {
	dir string // canonical absolute path
	ext string // lower-cased, with leading dot
}

// NewRoot canonicalizes dir and returns a Root accepting files with extension ext.
// The directory must already exist.
func NewRoot(dir, ext string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: canonicalize root: %w", err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", canon)
	}
	return &Root{dir: canon, ext: NormalizeExtension(ext)}, nil
}

// NormalizeExtension lower-cases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsDocumentName reports whether name case-insensitively ends with ext and has a
// non-empty stem. ext must already be normalized.
func IsDocumentName(name, ext string) bool {
	return len(name) > len(ext) && strings.HasSuffix(strings.ToLower(name), ext)
}

// Dir returns the canonical root directory.
func (r *Root) Dir() string { return r.dir }

// Extension returns the accepted document extension.
func (r *Root) Extension() string { return r.ext }

// Join returns the absolute path of filename inside the root. filename must
// already be sanitized.
func (r *Root) Join(filename string) string {
	return filepath.Join(r.dir, filename)
}

// Resolve validates an untrusted name. Sanitization and the containment check are
// independent: a name that survives sanitization is still rejected if its
// canonical location is outside the root.
func (r *Root) Resolve(name string) (models.SafePath, error) {
	if !strings.HasSuffix(strings.ToLower(name), r.ext) {
		return models.SafePath{}, apperr.Reject(apperr.ErrInvalidExtension, name, apperr.LayerValidator, "")
	}

	seg := Sanitize(name)
	if seg == "" || seg == "." || seg == ".." || strings.ContainsRune(seg, 0) {
		return models.SafePath{}, apperr.Reject(apperr.ErrTraversal, name, apperr.LayerValidator, "unusable final segment")
	}
	if !IsDocumentName(seg, r.ext) {
		return models.SafePath{}, apperr.Reject(apperr.ErrInvalidExtension, name, apperr.LayerValidator, "empty name before extension")
	}

	joined := filepath.Join(r.dir, seg)
	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return models.SafePath{}, apperr.Reject(apperr.ErrNotFound, name, apperr.LayerFilesystem, err.Error())
		}
		canon = filepath.Clean(joined)
	}

	if !r.contains(canon) {
		return models.SafePath{}, apperr.Reject(apperr.ErrTraversal, name, apperr.LayerValidator, "escapes document root")
	}

	info, err := os.Stat(canon)
	if err != nil {
		return models.SafePath{}, apperr.Reject(apperr.ErrNotFound, name, apperr.LayerFilesystem, err.Error())
	}
	if !info.Mode().IsRegular() {
		return models.SafePath{}, apperr.Reject(apperr.ErrNotFound, name, apperr.LayerFilesystem, "not a regular file")
	}

	return models.SafePath{Path: canon, Filename: seg}, nil
}

func (r *Root) contains(p string) bool {
	prefix := r.dir
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(p, prefix) && len(p) > len(prefix)
}

// Sanitize keeps only the final path segment of name, treating both '/' and '\'
// as separators regardless of platform.
func Sanitize(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
