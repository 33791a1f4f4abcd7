package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/docshelf/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps err onto a status code. Rejections of any kind are reported
// as a plain 404 so clients cannot probe the filesystem layout.
func writeError(w http.ResponseWriter, op, name string, err error) {
	switch {
	case apperr.IsRejection(err), errors.Is(err, apperr.ErrNotFound):
		slog.Debug(op+" rejected", slog.String("filename", name), slog.String("reason", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrStorageUnavailable), errors.Is(err, apperr.ErrTimeout):
		slog.Error(op+" failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("storage unavailable"))
	default:
		slog.Error(op+" failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// filenameParam extracts the {filename} route parameter. chi matches against
// r.URL.RawPath when it is set, leaving the parameter escaped, and against the
// already decoded r.URL.Path otherwise. Decoding happens exactly once.
func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if raw == "" || r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
