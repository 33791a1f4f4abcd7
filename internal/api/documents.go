package api

import (
	"mime"
	"net/http"
	"os"

	"github.com/starford/docshelf/internal/library"
)

// FileHandler streams catalogued documents.
type FileHandler struct {
	svc *library.Service
}

// NewFileHandler creates a handler backed by the library service.
func NewFileHandler(svc *library.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

// ServeDocument handles GET /documents/{filename}. Only names that pass
// validation and have a catalog entry are served.
func (h *FileHandler) ServeDocument(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	if name == "" {
		h.MissingName(w, r)
		return
	}

	res, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeError(w, "serve document", name, err)
		return
	}

	f, err := os.Open(res.Path.Path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": res.Path.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, res.Path.Filename, info.ModTime(), f)
}

// MissingName answers requests that name no document.
func (h *FileHandler) MissingName(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
}
