// Package sse implements a Server-Sent Events broker for session and content
// updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	EventStateChanged      = "state.changed"
	EventPlaybackChanged   = "playback.changed"
	EventManifestReloaded  = "manifest.reloaded"
	EventDocumentRefreshed = "document.refreshed"
	EventCorpusUpdated     = "corpus.updated"
)

// KindPrefetched marks a content event that only feeds the corpus.updated
// throttle.
const KindPrefetched = "prefetched"

// Broker fans events out to connected SSE clients. Sends never block: a
// client whose buffer is full misses the event.
type Broker struct {
	corpusMin time.Duration

	mu         sync.Mutex
	clients    map[chan []byte]struct{}
	lastCorpus time.Time
	closed     bool
}

// NewBroker creates a broker that emits corpus.updated at most once per
// corpusThrottle.
func NewBroker(corpusThrottle time.Duration) *Broker {
	if corpusThrottle <= 0 {
		corpusThrottle = 2 * time.Second
	}
	return &Broker{
		corpusMin: corpusThrottle,
		clients:   make(map[chan []byte]struct{}),
	}
}

// Close disconnects every client. Later calls are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		close(ch)
	}
	clear(b.clients)
}

// Subscribe adds a new client and returns its channel. After Close the
// channel comes back already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(kind string, data any) {
	frame, ok := encode(kind, data)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendLocked(frame)
}

// PublishContentEvent broadcasts a watcher event and feeds the corpus.updated
// throttle. KindPrefetched only feeds the throttle.
func (b *Broker) PublishContentEvent(kind, name string) {
	data := map[string]string{"name": name}

	b.mu.Lock()
	defer b.mu.Unlock()
	if kind == EventManifestReloaded || kind == EventDocumentRefreshed {
		if frame, ok := encode(kind, data); ok {
			b.sendLocked(frame)
		}
	}
	if now := time.Now(); now.Sub(b.lastCorpus) >= b.corpusMin {
		b.lastCorpus = now
		if frame, ok := encode(EventCorpusUpdated, data); ok {
			b.sendLocked(frame)
		}
	}
}

func (b *Broker) sendLocked(frame []byte) {
	for ch := range b.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

func encode(kind string, data any) ([]byte, bool) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", kind, payload)), true
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
