package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/library"
)

const maxMetadataBody = 64 << 10

// Handler holds API route handlers.
type Handler struct {
	svc *library.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *library.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List every catalogued document, newest first
//	@Tags			documents
//	@Produce		json
//	@Success		200	{array}		Document
//	@Failure		503	{object}	errResponse
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list documents", "", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetDocument handles GET /api/documents/{filename}.
//
//	@Summary		Get one catalog entry
//	@Tags			documents
//	@Produce		json
//	@Param			filename	path		string	true	"Document filename"
//	@Success		200			{object}	Document
//	@Failure		404			{object}	errResponse
//	@Router			/documents/{filename} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	res, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeError(w, "get document", name, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Entry)
}

// UpdateDocument handles PATCH /api/documents/{filename}.
//
//	@Summary		Edit title and/or description
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			filename	path		string					true	"Document filename"
//	@Param			body		body		UpdateDocumentRequest	true	"Fields to change"
//	@Success		200			{object}	Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/documents/{filename} [patch]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMetadataBody)
	var req UpdateDocumentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	entry, err := h.svc.UpdateMetadata(r.Context(), name, req)
	if err != nil {
		writeError(w, "update document", name, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Sync handles POST /api/sync.
//
//	@Summary		Reconcile the catalog with the document root
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Failure		503	{object}	errResponse
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Sync(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrStorageUnavailable) || errors.Is(err, apperr.ErrTimeout) {
			slog.Error("sync failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, errorBody("storage unavailable"))
			return
		}
		writeError(w, "sync", "", err)
		return
	}
	writeJSON(w, http.StatusOK, newSyncResponse(report))
}
