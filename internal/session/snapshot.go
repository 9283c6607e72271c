package session

import (
	"github.com/starford/morninglight/internal/apperr"
	"github.com/starford/morninglight/internal/markup"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/navigation"
	"github.com/starford/morninglight/internal/playback"
	"github.com/starford/morninglight/internal/preferences"
)

// LoadStatus describes an asynchronous load.
type LoadStatus string

// Load statuses.
const (
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
	StatusFailed  LoadStatus = "failed"
)

// Highlight effect phases.
const (
	PhaseScroll = "scroll"
	PhaseFade   = "fade"
)

// Effect is the highlight effect currently applied to a block.
type Effect struct {
	Block int    `json:"block"`
	Phase string `json:"phase"`
}

// CorpusStatus reports prefetch progress.
type CorpusStatus struct {
	Total  int  `json:"total"`
	Loaded int  `json:"loaded"`
	Failed int  `json:"failed"`
	Done   bool `json:"done"`
}

// EntryView is a manifest entry titled in the UI language.
type EntryView struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// ManifestView is the list screen model.
type ManifestView struct {
	Status  LoadStatus  `json:"status"`
	Error   string      `json:"error,omitempty"`
	Entries []EntryView `json:"entries"`
}

// DocumentView is the detail screen model.
type DocumentView struct {
	Status   LoadStatus        `json:"status"`
	Error    string            `json:"error,omitempty"`
	Date     string            `json:"date"`
	Language models.Language   `json:"language"`
	Title    string            `json:"title,omitempty"`
	Subtitle string            `json:"subtitle,omitempty"`
	Meta     *models.MetaBlock `json:"meta,omitempty"`
	Blocks   []markup.Rendered `json:"blocks,omitempty"`
	Prev     string            `json:"prev,omitempty"`
	Next     string            `json:"next,omitempty"`
}

// ResultView is one search hit. The title uses the UI language even when the
// match came from the other language.
type ResultView struct {
	Date     string          `json:"date"`
	Title    string          `json:"title"`
	Snippet  string          `json:"snippet"`
	Language models.Language `json:"language"`
	Path     string          `json:"path"`
}

// Snapshot is the full render model.
type Snapshot struct {
	View        navigation.View         `json:"view"`
	Date        string                  `json:"date"`
	Language    models.Language         `json:"language"`
	Location    string                  `json:"location"`
	Query       string                  `json:"query,omitempty"`
	Highlight   string                  `json:"highlight,omitempty"`
	Preferences preferences.Preferences `json:"preferences"`
	Manifest    ManifestView            `json:"manifest"`
	Document    *DocumentView           `json:"document,omitempty"`
	Results     []ResultView            `json:"results,omitempty"`
	Effect      *Effect                 `json:"effect,omitempty"`
	Playback    playback.Status         `json:"playback"`
	Corpus      CorpusStatus            `json:"corpus"`
}

// snapshot must run on the loop.
func (s *Session) snapshot() Snapshot {
	st := s.machine.State()
	lang := s.prefs.Language

	snap := Snapshot{
		View:        st.View,
		Date:        models.ISODate(st.Date),
		Language:    st.Language,
		Location:    s.history.Location(),
		Query:       st.Query,
		Highlight:   st.Highlight,
		Preferences: s.prefs,
		Manifest: ManifestView{
			Status:  s.manifest.status,
			Error:   s.manifest.err,
			Entries: make([]EntryView, 0, len(s.manifest.entries)),
		},
		Playback: s.player.Status(),
		Corpus:   s.corpus,
	}
	if s.effect != nil {
		e := *s.effect
		snap.Effect = &e
	}
	snap.Corpus.Loaded = int(s.prefetched.Load())
	snap.Corpus.Failed = int(s.prefetchFailed.Load())

	for _, e := range s.manifest.entries {
		snap.Manifest.Entries = append(snap.Manifest.Entries, EntryView{
			Date:  models.ISODate(e.Date),
			Title: e.Title(lang),
			Path:  navigation.Path(e.Date, lang),
		})
	}

	switch st.View {
	case navigation.ViewDetail:
		snap.Document = s.documentView(st)
	case navigation.ViewSearch:
		snap.Results = make([]ResultView, 0, len(s.results))
		for _, r := range s.results {
			snap.Results = append(snap.Results, ResultView{
				Date:     models.ISODate(r.Entry.Date),
				Title:    r.Entry.Title(lang),
				Snippet:  r.Snippet,
				Language: r.Language,
				Path:     navigation.Path(r.Entry.Date, lang),
			})
		}
	}
	return snap
}

func (s *Session) documentView(st navigation.State) *DocumentView {
	v := &DocumentView{
		Status:   s.doc.status,
		Date:     models.ISODate(st.Date),
		Language: st.Language,
	}
	if prev, ok := s.manifest.entries.Prev(st.Date); ok {
		v.Prev = models.ISODate(prev)
	}
	if next, ok := s.manifest.entries.Next(st.Date); ok {
		v.Next = models.ISODate(next)
	}

	switch s.doc.status {
	case StatusFailed:
		v.Error = apperr.DocumentNotAvailableMessage
	case StatusReady:
		if meta, ok := s.doc.doc.Meta(); ok {
			v.Meta = &meta
			v.Title = meta.Title
			v.Subtitle = meta.Subtitle
		}
		v.Blocks = markup.Render(s.doc.doc, st.Highlight)
	}
	return v
}
