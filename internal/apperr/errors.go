// Package apperr defines the error taxonomy shared by the catalog engine and its callers.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidExtension   = errors.New("invalid extension")
	ErrTraversal          = errors.New("traversal rejected")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPartialSync        = errors.New("partial sync failure")
	ErrTimeout            = errors.New("operation timed out")
	ErrInvalidInput       = errors.New("invalid input")
)

// Layer identifies where a NotFound rejection originated.
type Layer string

const (
	LayerValidator  Layer = "validator"
	LayerFilesystem Layer = "filesystem"
	LayerCatalog    Layer = "catalog"
)

// Rejection is the typed refusal returned for an untrusted document name.
// Detail is for logs only and must never be sent to clients.
type Rejection struct {
	Kind   error
	Name   string
	Layer  Layer
	Detail string
}

// Reject builds a Rejection.
func Reject(kind error, name string, layer Layer, detail string) *Rejection {
	return &Rejection{Kind: kind, Name: name, Layer: layer, Detail: detail}
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s: %q", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s: %q (%s)", r.Kind, r.Name, r.Detail)
}

func (r *Rejection) Unwrap() error { return r.Kind }

// IsRejection reports whether err carries a Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// FileFailure is one per-file error collected during a sync pass.
type FileFailure struct {
	Filename string
	Op       string
	Err      error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Filename, f.Err)
}

// MarshalJSON renders the failure without the underlying error text, which may
// contain filesystem paths.
func (f FileFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filename string `json:"filename"`
		Op       string `json:"op"`
		Kind     string `json:"kind"`
	}{f.Filename, f.Op, KindOf(f.Err)})
}

// PartialSyncError reports that a sync pass completed with per-file failures.
type PartialSyncError struct {
	Failures []FileFailure
}

func (e *PartialSyncError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s: %d file(s): %s", ErrPartialSync, len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PartialSyncError) Is(target error) bool {
	return target == ErrPartialSync
}

// KindOf returns a short machine-readable name for err, or "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidExtension):
		return "invalid_extension"
	case errors.Is(err, ErrTraversal):
		return "traversal_rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrPartialSync):
		return "partial_sync_failure"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
