// Package api implements the docshelf HTTP API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/docshelf/internal/library"
)

// NewRouter creates the JSON API routes, mounted by the caller under /api.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *library.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{filename}", h.GetDocument)
	r.Patch("/documents/{filename}", h.UpdateDocument)

	r.Post("/sync", h.Sync)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewFileRouter creates the routes that stream document bytes, mounted by the
// caller under /documents.
func NewFileRouter(svc *library.Service) chi.Router {
	fh := NewFileHandler(svc)

	r := chi.NewRouter()
	r.Get("/", fh.MissingName)
	r.Get("/{filename}", fh.ServeDocument)
	return r
}
