package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/morninglight/internal/apperr"
	"github.com/starford/morninglight/internal/checksum"
	"github.com/starford/morninglight/internal/models"
)

// entry is a cache slot. An absent key means "not yet fetched"; failed marks
// a fetch that did not produce a valid document.
type entry struct {
	doc    models.Document
	failed bool
}

// Store is the sole owner of remote-fetch state. It is safe for concurrent use;
// concurrent writes for the same key resolve as last-write-wins.
type Store struct {
	src         Source
	logger      *slog.Logger
	concurrency int

	mu          sync.RWMutex
	manifest    models.Manifest
	manifestSum string
	docs        map[string]entry
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithConcurrency bounds the number of in-flight prefetch requests.
func WithConcurrency(n int) Option {
	return func(s *Store) { s.concurrency = n }
}

// NewStore creates a Store reading from src.
func NewStore(src Source, opts ...Option) *Store {
	s := &Store{
		src:         src,
		logger:      slog.Default(),
		concurrency: 8,
		docs:        make(map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadManifest fetches the manifest and holds it until the next successful load.
func (s *Store) LoadManifest(ctx context.Context) (models.Manifest, error) {
	data, err := s.src.Fetch(ctx, models.ManifestName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrManifestUnavailable, err)
	}
	m, err := models.DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrManifestUnavailable, err)
	}

	s.mu.Lock()
	s.manifest = m
	s.manifestSum = checksum.Sum(data)
	s.mu.Unlock()

	s.logger.Info("content: manifest loaded", slog.Int("entries", len(m)))
	return m, nil
}

// Manifest returns the currently held manifest (nil before the first load).
func (s *Store) Manifest() models.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// ManifestChecksum returns the digest of the last loaded manifest payload.
func (s *Store) ManifestChecksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifestSum
}

// PrefetchStats summarizes a PrefetchAll batch.
type PrefetchStats struct {
	Loaded int
	Failed int
}

// ProgressFunc is called once per finished prefetch request. err is nil on success.
type ProgressFunc func(key string, err error)

// PrefetchAll fetches every (date, language) pair in manifest concurrently and
// waits for the whole batch. A failed key never cancels its siblings; it is
// recorded with the failed marker so search sees it as an empty document.
func (s *Store) PrefetchAll(ctx context.Context, manifest models.Manifest, progress ProgressFunc) PrefetchStats {
	var (
		statsMu sync.Mutex
		stats   PrefetchStats
	)

	g := new(errgroup.Group)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	started := time.Now()
	for _, e := range manifest {
		for _, lang := range models.Languages {
			g.Go(func() error {
				_, err := s.fetch(ctx, e.Date, lang)

				statsMu.Lock()
				if err != nil {
					stats.Failed++
				} else {
					stats.Loaded++
				}
				if progress != nil {
					progress(models.CacheKey(e.Date, lang), err)
				}
				statsMu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	s.logger.Info("content: prefetch complete",
		slog.Int("loaded", stats.Loaded),
		slog.Int("failed", stats.Failed),
		slog.Duration("elapsed", time.Since(started)))
	return stats
}

// Get returns the cached document for (date, lang), fetching it on a miss.
// A previously failed key is fetched again. Any status, parse or validation
// failure is reported as apperr.ErrDocumentNotAvailable.
func (s *Store) Get(ctx context.Context, date time.Time, lang models.Language) (models.Document, error) {
	key := models.CacheKey(date, lang)

	s.mu.RLock()
	e, ok := s.docs[key]
	s.mu.RUnlock()
	if ok && !e.failed {
		return e.doc, nil
	}

	return s.fetch(ctx, date, lang)
}

// Lookup reads the cache without fetching. Failed keys read as an empty document.
func (s *Store) Lookup(date time.Time, lang models.Language) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[models.CacheKey(date, lang)]
	if !ok {
		return models.Document{}, false
	}
	return e.doc, true
}

// Refresh refetches (date, lang) unconditionally, replacing the cached entry.
func (s *Store) Refresh(ctx context.Context, date time.Time, lang models.Language) (models.Document, error) {
	return s.fetch(ctx, date, lang)
}

// Cached returns the number of cached entries and how many of them failed.
func (s *Store) Cached() (total, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.docs {
		if e.failed {
			failed++
		}
	}
	return len(s.docs), failed
}

func (s *Store) fetch(ctx context.Context, date time.Time, lang models.Language) (models.Document, error) {
	key := models.CacheKey(date, lang)

	data, err := s.src.Fetch(ctx, models.DocumentName(date, lang))
	if err == nil {
		var doc models.Document
		if doc, err = models.DecodeDocument(date, lang, data); err == nil {
			s.put(key, entry{doc: doc})
			return doc, nil
		}
	}

	if ctx.Err() == nil {
		s.put(key, entry{doc: models.Document{Date: date, Language: lang}, failed: true})
	}
	s.logger.Debug("content: document not available", slog.String("key", key), slog.String("error", err.Error()))
	return models.Document{}, fmt.Errorf("%s: %w: %v", key, apperr.ErrDocumentNotAvailable, err)
}

func (s *Store) put(key string, e entry) {
	s.mu.Lock()
	s.docs[key] = e
	s.mu.Unlock()
}
