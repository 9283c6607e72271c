package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/morninglight/internal/apperr"
	"github.com/starford/morninglight/internal/checksum"
	"github.com/starford/morninglight/internal/content"
	"github.com/starford/morninglight/internal/markup"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/navigation"
	"github.com/starford/morninglight/internal/search"
	"github.com/starford/morninglight/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	sess  *session.Session
	store *content.Store
}

// NewHandler creates a new Handler.
func NewHandler(sess *session.Session, store *content.Store) *Handler {
	return &Handler{sess: sess, store: store}
}

// State handles GET /api/state.
//
//	@Summary		Current session render model
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.Snapshot())
}

// Manifest handles GET /api/manifest.
//
//	@Summary		List available devotions
//	@Tags			content
//	@Produce		json
//	@Success		200	{object}	ManifestResponse
//	@Failure		503	{object}	errResponse
//	@Router			/manifest [get]
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	m := h.store.Manifest()
	if m == nil {
		var err error
		if m, err = h.store.LoadManifest(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, ManifestResponse{
		Entries:  m.Sorted(),
		Checksum: h.store.ManifestChecksum(),
	})
}

// Document handles GET /api/documents/{slug}.
//
//	@Summary		Get a devotion by slug
//	@Tags			content
//	@Produce		json
//	@Param			slug		path		string	true	"DD-MM-YYYY-LANG"
//	@Param			highlight	query		string	false	"Term to mark in rendered blocks"
//	@Param			If-None-Match	header	string	false	"Entity tag from a previous response"
//	@Success		200			{object}	DocumentResponse
//	@Success		304
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/documents/{slug} [get]
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	date, lang, ok := navigation.ParseSlug("/" + slug)
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", apperr.ErrInvalidLocation, slug))
		return
	}

	doc, err := h.store.Get(r.Context(), date, lang)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := DocumentResponse{
		Date:     models.ISODate(date),
		Language: lang,
		Blocks:   doc,
	}
	if hl := r.URL.Query().Get("highlight"); strings.TrimSpace(hl) != "" {
		resp.Rendered = markup.Render(doc, hl)
	}

	etag, err := checksum.ETag(resp)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", etag)
	if checksum.Match(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over cached devotions
//	@Tags			content
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			lang	query		string	false	"Language for result titles"	Enums(EN, TA)
//	@Success		200		{object}	SearchResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	lang, ok := models.ParseLanguage(r.URL.Query().Get("lang"))
	if !ok {
		lang = models.English
	}

	hits := search.Search(q, h.store, h.store.Manifest())
	out := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SearchResult{
			Date:     models.ISODate(hit.Entry.Date),
			Title:    hit.Entry.Title(lang),
			Snippet:  hit.Snippet,
			Language: hit.Language,
			Path:     navigation.Path(hit.Entry.Date, lang),
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Select handles POST /api/navigation/select.
//
//	@Summary		Open a devotion
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectRequest	true	"Target date and optional highlight"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Router			/navigation/select [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	date, err := models.ParseISODate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	h.respond(w)(h.sess.SelectEntry(date, req.Query))
}

// SubmitSearch handles POST /api/navigation/search.
//
//	@Summary		Show search results
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Query"
//	@Success		200		{object}	StateResponse
//	@Router			/navigation/search [post]
func (h *Handler) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.respond(w)(h.sess.SubmitSearch(req.Query))
}

// Home handles POST /api/navigation/home.
func (h *Handler) Home(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.GoHome())
}

// PopState handles POST /api/navigation/popstate.
//
//	@Summary		Apply a browser back/forward navigation
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PopStateRequest	true	"New location"
//	@Success		200		{object}	StateResponse
//	@Router			/navigation/popstate [post]
func (h *Handler) PopState(w http.ResponseWriter, r *http.Request) {
	var req PopStateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.respond(w)(h.sess.PopState(req.Location))
}

// NextDay handles POST /api/navigation/next.
func (h *Handler) NextDay(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.NextDay())
}

// PrevDay handles POST /api/navigation/prev.
func (h *Handler) PrevDay(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.PrevDay())
}

// PickDate handles POST /api/navigation/date.
func (h *Handler) PickDate(w http.ResponseWriter, r *http.Request) {
	var req DateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	date, err := models.ParseISODate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	h.respond(w)(h.sess.PickDate(date))
}

// ToggleLanguage handles POST /api/preferences/language.
func (h *Handler) ToggleLanguage(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.ToggleLanguage())
}

// ToggleTheme handles POST /api/preferences/theme.
func (h *Handler) ToggleTheme(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.ToggleTheme())
}

// ChangeFontSize handles POST /api/preferences/font-size.
//
//	@Summary		Adjust the font size
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FontSizeRequest	true	"Signed step"
//	@Success		200		{object}	StateResponse
//	@Router			/preferences/font-size [post]
func (h *Handler) ChangeFontSize(w http.ResponseWriter, r *http.Request) {
	var req FontSizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.respond(w)(h.sess.ChangeFontSize(req.Delta))
}

// ToggleAudio handles POST /api/audio/toggle.
func (h *Handler) ToggleAudio(w http.ResponseWriter, _ *http.Request) {
	h.respond(w)(h.sess.ToggleAudio())
}

// respond writes a session action result.
func (h *Handler) respond(w http.ResponseWriter) func(session.Snapshot, error) {
	return func(snap session.Snapshot, err error) {
		if err != nil {
			slog.Warn("session action failed", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
