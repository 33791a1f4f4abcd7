package api

import (
	"time"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/library"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/syncer"
)

// Document is the catalog entry response type (aliased from the domain layer).
type Document = models.CatalogEntry

// UpdateDocumentRequest is the request body for editing metadata.
type UpdateDocumentRequest = library.MetadataUpdate

// SyncResponse summarizes a sync pass.
type SyncResponse struct {
	Added      int                  `json:"added" example:"2"`
	Updated    int                  `json:"updated" example:"0"`
	Removed    int                  `json:"removed" example:"1"`
	Errors     []apperr.FileFailure `json:"errors"`
	StartedAt  time.Time            `json:"started_at"`
	DurationMS int64                `json:"duration_ms" example:"12"`
}

func newSyncResponse(r syncer.Report) SyncResponse {
	errs := r.Errors
	if errs == nil {
		errs = []apperr.FileFailure{}
	}
	return SyncResponse{
		Added:      r.Added,
		Updated:    r.Updated,
		Removed:    r.Removed,
		Errors:     errs,
		StartedAt:  r.Started,
		DurationMS: r.Duration.Milliseconds(),
	}
}
