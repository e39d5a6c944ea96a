package api

import (
	"net/http"
	"strings"

	"github.com/starford/souschef/internal/assistant"
)

// Handler holds API route handlers.
type Handler struct {
	a *assistant.Assistant
}

// NewHandler creates a new Handler.
func NewHandler(a *assistant.Assistant) *Handler {
	return &Handler{a: a}
}

// CookbookStatus handles GET /api/cookbook.
func (h *Handler) CookbookStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.a.Index().Status())
}

// ReloadCookbook handles POST /api/cookbook/reload. The rebuild runs in the
// background unless ?wait=true.
func (h *Handler) ReloadCookbook(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "true" {
		writeResult(w, h.a.ReloadCookbook(r.Context()))
		return
	}
	writeJSON(w, http.StatusAccepted, h.a.ReloadCookbookAsync(r.Context()))
}

// Search handles GET /api/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeResult(w, h.a.SearchCookbook(r.Context(), q))
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Augmented bool   `json:"augmented"`
	Context   string `json:"context,omitempty"`
}

// AugmentTurn handles POST /api/turns. The voice pipeline posts each
// finished user utterance and receives cookbook context to inject, if any.
func (h *Handler) AugmentTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	text, ok := h.a.AugmentTurn(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, turnResponse{Augmented: ok, Context: text})
}

// UIEvent handles POST /api/ui/events from the display.
func (h *Handler) UIEvent(w http.ResponseWriter, r *http.Request) {
	var ev assistant.UIEvent
	if err := readJSON(w, r, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeResult(w, h.a.HandleUIEvent(r.Context(), ev))
}

// Session handles GET /api/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.a.Status(r.Context()))
}

// Ready reports whether a cookbook index is loaded. The service is up
// either way; the body says whether search will find anything.
func Ready(a *assistant.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := a.Index().Status()
		status := "ok"
		if !st.Available {
			status = "no_index"
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "index": st})
	}
}
