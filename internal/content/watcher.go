package content

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/morninglight/internal/models"
)

// Watcher event kinds passed to EventCallback.
const (
	EventManifestReloaded  = "manifest.reloaded"
	EventDocumentRefreshed = "document.refreshed"
)

// EventCallback is called after a watcher-driven cache change.
type EventCallback func(kind string, name string)

const debounce = 200 * time.Millisecond

// Watch observes a local content root and keeps the store current until ctx is
// cancelled: writes to manifest.json reload the manifest, writes to a document
// file refetch that key. Bursts of events for the same file are coalesced.
func Watch(ctx context.Context, store *Store, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(name string) {
		pending[name] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for name := range pending {
				apply(ctx, store, name, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			schedule(name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func apply(ctx context.Context, store *Store, name string, logger *slog.Logger, cb EventCallback) {
	if name == models.ManifestName {
		before := store.ManifestChecksum()
		if _, err := store.LoadManifest(ctx); err != nil {
			logger.Warn("watcher: manifest reload failed", slog.String("error", err.Error()))
			return
		}
		if store.ManifestChecksum() == before {
			logger.Debug("watcher: manifest unchanged")
			return
		}
		if cb != nil {
			cb(EventManifestReloaded, name)
		}
		return
	}

	date, lang, ok := parseDocumentName(name)
	if !ok {
		logger.Debug("watcher: ignoring file", slog.String("name", name))
		return
	}
	if _, err := store.Refresh(ctx, date, lang); err != nil {
		logger.Warn("watcher: refresh failed", slog.String("name", name), slog.String("error", err.Error()))
	}
	if cb != nil {
		cb(EventDocumentRefreshed, strings.TrimSuffix(name, ".json"))
	}
}

// parseDocumentName parses DD-MM-YYYY-LANG.json.
func parseDocumentName(name string) (time.Time, models.Language, bool) {
	stem := strings.TrimSuffix(name, ".json")
	i := strings.LastIndexByte(stem, '-')
	if i < 0 {
		return time.Time{}, "", false
	}
	lang, ok := models.ParseLanguage(stem[i+1:])
	if !ok {
		return time.Time{}, "", false
	}
	date, err := models.ParseFilenameDate(stem[:i])
	if err != nil {
		return time.Time{}, "", false
	}
	return date, lang, true
}
