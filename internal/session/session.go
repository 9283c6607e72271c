// Package session owns all process state and serializes every mutation on a
// single event loop. I/O and timers run on their own goroutines and report
// back by posting closures to the loop.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/morninglight/internal/content"
	"github.com/starford/morninglight/internal/highlight"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/navigation"
	"github.com/starford/morninglight/internal/playback"
	"github.com/starford/morninglight/internal/preferences"
	"github.com/starford/morninglight/internal/search"
	"github.com/starford/morninglight/internal/sse"
)

// ErrStopped is returned by actions issued after the loop exited.
var ErrStopped = errors.New("session: stopped")

// Publisher broadcasts session and content events.
type Publisher interface {
	Publish(kind string, data any)
	PublishContentEvent(kind, name string)
}

// Config tunes a Session.
type Config struct {
	// InitialLocation seeds the history, e.g. "/" or "/05-03-2024-EN".
	InitialLocation string
	// Today is the date shown before anything is selected. Zero means now.
	Today      time.Time
	Prefetch   bool
	FadeDelay  time.Duration
	ClearDelay time.Duration
}

// Session is the single owner of navigation, preferences, manifest and
// document state.
type Session struct {
	store   *content.Store
	prefsDB *preferences.Store
	pub     Publisher
	logger  *slog.Logger
	cfg     Config

	history *navigation.MemoryHistory
	machine *navigation.Machine
	player  *playback.Controller
	hl      *highlight.Coordinator
	hlGen   atomic.Uint64

	prefs    preferences.Preferences
	manifest manifestState
	doc      documentState
	results  []search.Result
	effect   *Effect
	corpus   CorpusStatus

	prefetched     atomic.Int64
	prefetchFailed atomic.Int64
	prefetchGen    atomic.Uint64

	ctx  context.Context
	ops  chan func()
	done chan struct{}
}

type manifestState struct {
	status  LoadStatus
	err     string
	entries models.Manifest
}

type documentState struct {
	seq    uint64
	date   time.Time
	lang   models.Language
	status LoadStatus
	err    string
	doc    models.Document
}

// New creates a session. Call Run to start the loop.
func New(store *content.Store, prefsDB *preferences.Store, backend playback.Backend, pub Publisher, cfg Config, logger *slog.Logger, playOpts ...playback.Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InitialLocation == "" {
		cfg.InitialLocation = navigation.Root
	}
	if cfg.Today.IsZero() {
		cfg.Today = time.Now()
	}

	s := &Session{
		store:   store,
		prefsDB: prefsDB,
		pub:     pub,
		logger:  logger,
		cfg:     cfg,
		history: navigation.NewMemoryHistory(cfg.InitialLocation),
		prefs:   preferences.Defaults(),
		ops:     make(chan func(), 64),
		done:    make(chan struct{}),
	}
	s.hl = highlight.New(effects{s}, cfg.FadeDelay, cfg.ClearDelay)

	opts := append([]playback.Option{
		playback.WithLogger(logger.With("component", "playback")),
		playback.WithOnChange(func(st playback.Status) {
			if s.pub != nil {
				s.pub.Publish(sse.EventPlaybackChanged, st)
			}
		}),
	}, playOpts...)
	s.player = playback.NewController(backend, opts...)
	return s
}

// Run drives the loop until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	s.start()

	for {
		select {
		case <-ctx.Done():
			s.hl.Cancel()
			s.player.Stop()
			close(s.done)
			return nil
		case fn := <-s.ops:
			fn()
		}
	}
}

// start loads preferences, derives the initial view from the location and
// kicks off the manifest load.
func (s *Session) start() {
	if s.prefsDB != nil {
		p, err := s.prefsDB.Load()
		if err != nil {
			s.logger.Warn("session: load preferences", slog.String("error", err.Error()))
		}
		s.prefs = p
	}

	s.machine = navigation.NewMachine(s.history, s.prefs.Language, s.cfg.Today)
	before := s.machine.State()
	s.machine.Init()
	s.reconcile(before, true)

	s.loadManifest()
	s.publishState()
}

// post queues fn on the loop. It reports false once the loop has exited.
func (s *Session) post(fn func()) bool {
	select {
	case s.ops <- fn:
		return true
	case <-s.done:
		return false
	}
}

// call runs fn on the loop and returns the resulting snapshot.
func (s *Session) call(fn func()) (Snapshot, error) {
	res := make(chan Snapshot, 1)
	ok := s.post(func() {
		fn()
		res <- s.snapshot()
	})
	if !ok {
		return Snapshot{}, ErrStopped
	}
	select {
	case snap := <-res:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrStopped
	}
}

// Snapshot returns the current render model.
func (s *Session) Snapshot() (Snapshot, error) {
	return s.call(func() {})
}

// transition applies a navigation change and reconciles everything that
// depends on it.
func (s *Session) transition(fn func()) {
	before := s.machine.State()
	fn()
	s.reconcile(before, false)
	s.publishState()
}

// reconcile reacts to a navigation state change: it persists the language,
// releases audio and highlight timers when leaving a document, loads the
// target document and recomputes search results.
func (s *Session) reconcile(before navigation.State, force bool) {
	after := s.machine.State()

	if after.Language != s.prefs.Language {
		s.prefs.Language = after.Language
		s.savePrefs()
	}

	moved := after.View != before.View || !after.Date.Equal(before.Date) || after.Language != before.Language
	if moved {
		s.player.Stop()
		s.cancelHighlight()
	}

	switch after.View {
	case navigation.ViewDetail:
		if moved || force || s.doc.status == StatusFailed {
			s.loadDocument(after.Date, after.Language)
		} else if after.Highlight != "" && after.Highlight != before.Highlight && s.doc.status == StatusReady {
			s.applyHighlight()
		}
	case navigation.ViewSearch:
		if moved || force || after.Query != before.Query {
			s.runSearch()
		}
	default:
		s.results = nil
	}
}

func (s *Session) savePrefs() {
	if s.prefsDB == nil {
		return
	}
	if err := s.prefsDB.Save(s.prefs); err != nil {
		s.logger.Warn("session: save preferences", slog.String("error", err.Error()))
	}
}

func (s *Session) publishState() {
	if s.pub != nil {
		s.pub.Publish(sse.EventStateChanged, s.snapshot())
	}
}

func (s *Session) loadManifest() {
	s.manifest.status = StatusLoading
	ctx := s.ctx
	go func() {
		m, err := s.store.LoadManifest(ctx)
		s.post(func() { s.applyManifest(m, err) })
	}()
}

func (s *Session) applyManifest(m models.Manifest, err error) {
	if err != nil {
		s.manifest = manifestState{status: StatusFailed, err: err.Error()}
		s.logger.Error("session: manifest", slog.String("error", err.Error()))
		s.publishState()
		return
	}
	s.manifest = manifestState{status: StatusReady, entries: m}
	s.publishState()

	if s.cfg.Prefetch {
		s.prefetch(m)
	}
}

// prefetch warms the cache in the background. Progress feeds the throttled
// corpus.updated event; the final stats are applied on the loop. A newer
// batch (manifest reload) supersedes the progress of an older one.
func (s *Session) prefetch(m models.Manifest) {
	ctx := s.ctx
	gen := s.prefetchGen.Add(1)
	s.corpus = CorpusStatus{Total: len(m) * len(models.Languages)}
	s.prefetched.Store(0)
	s.prefetchFailed.Store(0)
	go func() {
		stats := s.store.PrefetchAll(ctx, m, func(key string, err error) {
			if s.prefetchGen.Load() != gen {
				return
			}
			if err != nil {
				s.prefetchFailed.Add(1)
			} else {
				s.prefetched.Add(1)
			}
			if s.pub != nil {
				s.pub.PublishContentEvent(sse.KindPrefetched, key)
			}
		})
		s.post(func() {
			if s.prefetchGen.Load() != gen {
				return
			}
			s.corpus.Loaded = stats.Loaded
			s.corpus.Failed = stats.Failed
			s.corpus.Done = true
			if s.machine.State().View == navigation.ViewSearch {
				s.runSearch()
			}
			if s.pub != nil {
				s.pub.Publish(sse.EventCorpusUpdated, s.corpus)
			}
			s.publishState()
		})
	}()
}

// loadDocument fetches (date, lang). Results for a superseded target are
// dropped by sequence number.
func (s *Session) loadDocument(date time.Time, lang models.Language) {
	s.doc.seq++
	seq := s.doc.seq
	s.doc.date, s.doc.lang = date, lang
	s.doc.status = StatusLoading
	s.doc.err = ""
	s.doc.doc = models.Document{}

	ctx := s.ctx
	go func() {
		doc, err := s.store.Get(ctx, date, lang)
		s.post(func() { s.applyDocument(seq, doc, err) })
	}()
}

func (s *Session) applyDocument(seq uint64, doc models.Document, err error) {
	if seq != s.doc.seq {
		s.logger.Debug("session: discarding stale document", slog.String("key", models.CacheKey(doc.Date, doc.Language)))
		return
	}
	if err != nil {
		s.doc.status = StatusFailed
		s.doc.err = err.Error()
		s.logger.Info("session: document not available", slog.String("error", err.Error()))
	} else {
		s.doc.status = StatusReady
		s.doc.doc = doc
		if s.machine.State().Highlight != "" {
			s.applyHighlight()
		}
	}
	s.publishState()
}

func (s *Session) runSearch() {
	st := s.machine.State()
	s.results = search.Search(st.Query, s.store, s.currentManifest())
}

func (s *Session) currentManifest() models.Manifest {
	return s.manifest.entries
}

func (s *Session) applyHighlight() {
	s.hlGen.Add(1)
	s.effect = nil
	s.hl.Apply(s.doc.doc, s.machine.State().Highlight)
}

func (s *Session) cancelHighlight() {
	s.hlGen.Add(1)
	s.hl.Cancel()
	s.effect = nil
}

// effects adapts highlight callbacks, which may fire on timer goroutines, to
// the loop. Callbacks belonging to a cancelled highlight are dropped.
type effects struct{ s *Session }

func (e effects) ScrollTo(block int) { e.apply(&Effect{Block: block, Phase: PhaseScroll}, false) }
func (e effects) Fade(block int)     { e.apply(&Effect{Block: block, Phase: PhaseFade}, false) }
func (e effects) Clear()             { e.apply(nil, true) }

func (e effects) apply(effect *Effect, clear bool) {
	s := e.s
	gen := s.hlGen.Load()
	go s.post(func() {
		if gen != s.hlGen.Load() {
			return
		}
		s.effect = effect
		if clear {
			s.machine.ClearHighlight()
		}
		s.publishState()
	})
}

// ContentChanged reacts to watcher events: a reloaded manifest replaces the
// list and, with prefetch enabled, warms the cache for it again; a refreshed
// document that is on screen is re-rendered.
func (s *Session) ContentChanged(kind, name string) {
	if s.pub != nil {
		s.pub.PublishContentEvent(kind, name)
	}
	s.post(func() {
		switch kind {
		case content.EventManifestReloaded:
			if m := s.store.Manifest(); m != nil {
				s.manifest = manifestState{status: StatusReady, entries: m}
				if s.cfg.Prefetch {
					s.prefetch(m)
				}
			}
		case content.EventDocumentRefreshed:
			st := s.machine.State()
			if st.View == navigation.ViewDetail && name == models.CacheKey(st.Date, st.Language) {
				s.loadDocument(st.Date, st.Language)
			}
		}
		if s.machine.State().View == navigation.ViewSearch {
			s.runSearch()
		}
		s.publishState()
	})
}
