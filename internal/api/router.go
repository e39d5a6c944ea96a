package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/souschef/internal/assistant"
)

// RouterOptions configures the API router.
type RouterOptions struct {
	// AuthEnabled enforces Bearer token auth with Token.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// ReloadOnUpload rebuilds the index after an upload. Leave it off when
	// a watcher already follows the document store.
	ReloadOnUpload bool
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(a *assistant.Assistant, opts RouterOptions) chi.Router {
	h := NewHandler(a)
	dh := NewDocumentHandler(a, opts.ReloadOnUpload)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	// Cookbook documents.
	r.Get("/documents", dh.List)
	r.Post("/documents", dh.Upload)
	r.Delete("/documents", dh.Clear)

	// Index.
	r.Get("/cookbook", h.CookbookStatus)
	r.Post("/cookbook/reload", h.ReloadCookbook)
	r.Get("/search", h.Search)

	// Voice pipeline and display.
	r.Post("/turns", h.AugmentTurn)
	r.Post("/ui/events", h.UIEvent)
	r.Get("/session", h.Session)

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
