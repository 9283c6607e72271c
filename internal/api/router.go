package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/morninglight/internal/content"
	"github.com/starford/morninglight/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
// corsOrigins lists the browser origins allowed to call the API.
func NewRouter(sess *session.Session, store *content.Store, sseHandler http.Handler, corsOrigins []string) chi.Router {
	h := NewHandler(sess, store)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(corsOrigins))

	// Read-only content.
	r.Get("/state", h.State)
	r.Get("/manifest", h.Manifest)
	r.Get("/documents/{slug}", h.Document)
	r.Get("/search", h.Search)

	// Navigation.
	r.Route("/navigation", func(r chi.Router) {
		r.Post("/select", h.Select)
		r.Post("/search", h.SubmitSearch)
		r.Post("/home", h.Home)
		r.Post("/popstate", h.PopState)
		r.Post("/next", h.NextDay)
		r.Post("/prev", h.PrevDay)
		r.Post("/date", h.PickDate)
	})

	// Preferences.
	r.Route("/preferences", func(r chi.Router) {
		r.Post("/language", h.ToggleLanguage)
		r.Post("/theme", h.ToggleTheme)
		r.Post("/font-size", h.ChangeFontSize)
	})

	r.Post("/audio/toggle", h.ToggleAudio)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
