package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/souschef/internal/assistant"
)

const maxUploadBytes = 50 << 20 // 50 MB

var uploadExtensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

// DocumentHandler manages the cookbook documents in the store.
type DocumentHandler struct {
	a      *assistant.Assistant
	reload bool
}

// NewDocumentHandler creates a handler. With reload set, an upload starts
// a background index rebuild.
func NewDocumentHandler(a *assistant.Assistant, reload bool) *DocumentHandler {
	return &DocumentHandler{a: a, reload: reload}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) with a supported extension.
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if ext := strings.ToLower(filepath.Ext(cleaned)); !uploadExtensions[ext] {
		return "", fmt.Errorf("unsupported file type %q (allowed: pdf, txt, md)", ext)
	}
	return cleaned, nil
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, _ *http.Request) {
	metas, err := h.a.Index().Store().List()
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": metas,
		"total":     len(metas),
	})
}

// Upload handles POST /api/documents (multipart/form-data, field "file").
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read upload"))
		return
	}
	if err := h.a.Index().Store().Write(name, data); err != nil {
		slog.Error("write document failed", slog.String("path", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	resp := map[string]any{
		"filename": name,
		"size":     len(data),
	}
	if h.reload {
		resp["reload"] = h.a.ReloadCookbookAsync(r.Context())
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Clear handles DELETE /api/documents: the documents and the index go.
func (h *DocumentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.a.ClearCookbook(r.Context(), true))
}
