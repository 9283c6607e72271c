package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeHandle struct {
	id     string
	b      *fakeBackend
	mu     sync.Mutex
	plays  int
	pauses int
	closed bool
	done   chan struct{}
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays++
	return nil
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauses++
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.b.live.Add(-1)
	}
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) finish() { close(h.done) }

type fakeBackend struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	fail    map[string]error
	handles []*fakeHandle
	live    atomic.Int32
	maxLive atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

// hold makes Open(url) block until the returned func is called.
func (b *fakeBackend) hold(url string) func() {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[url] = ch
	b.mu.Unlock()
	return func() { close(ch) }
}

func (b *fakeBackend) Open(ctx context.Context, url string) (Handle, error) {
	b.mu.Lock()
	gate := b.gates[url]
	failErr := b.fail[url]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failErr != nil {
		return nil, failErr
	}

	b.mu.Lock()
	h := &fakeHandle{id: fmt.Sprintf("h%d", len(b.handles)+1), b: b, done: make(chan struct{})}
	b.handles = append(b.handles, h)
	b.mu.Unlock()

	n := b.live.Add(1)
	for {
		m := b.maxLive.Load()
		if n <= m || b.maxLive.CompareAndSwap(m, n) {
			break
		}
	}
	return h, nil
}

func (b *fakeBackend) opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

func (b *fakeBackend) handle(i int) *fakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handles[i]
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func stateIs(c *Controller, want State) func() bool {
	return func() bool { return c.Status().State == want }
}

func TestToggle_PlayPauseResumeReusesHandle(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))

	c.Toggle("http://a/1.mp3")
	eventually(t, time.Second, stateIs(c, StatePlaying))

	c.Toggle("http://a/1.mp3")
	if st := c.Status(); st.State != StatePaused || st.URL != "http://a/1.mp3" {
		t.Fatalf("status = %+v, want paused", st)
	}

	c.Toggle("http://a/1.mp3")
	if c.Status().State != StatePlaying {
		t.Fatalf("state = %s, want playing", c.Status().State)
	}
	if b.opened() != 1 {
		t.Errorf("opened %d handles, want 1", b.opened())
	}
	h := b.handle(0)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.plays != 2 || h.pauses != 1 {
		t.Errorf("plays = %d pauses = %d", h.plays, h.pauses)
	}
}

func TestToggle_EmptyURLIsNoop(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))
	c.Toggle("")
	if c.Status().State != StateIdle || b.opened() != 0 {
		t.Errorf("status = %+v opened = %d", c.Status(), b.opened())
	}
}

func TestToggle_StaleReadinessIsDiscarded(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))

	releaseA := b.hold("http://a/old.mp3")
	c.Toggle("http://a/old.mp3")
	if c.Status().State != StateLoading {
		t.Fatalf("state = %s, want loading", c.Status().State)
	}

	c.Toggle("http://a/new.mp3")
	eventually(t, time.Second, stateIs(c, StatePlaying))

	releaseA()
	eventually(t, time.Second, func() bool { return b.opened() == 2 && b.live.Load() == 1 })

	if st := c.Status(); st.URL != "http://a/new.mp3" || st.State != StatePlaying {
		t.Errorf("status = %+v", st)
	}
	if b.maxLive.Load() > 2 {
		t.Errorf("max live handles = %d", b.maxLive.Load())
	}
	old := b.handle(1)
	eventually(t, time.Second, func() bool {
		old.mu.Lock()
		defer old.mu.Unlock()
		return old.closed
	})
}

func TestToggle_SwitchingURLReleasesPrevious(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))

	c.Toggle("http://a/1.mp3")
	eventually(t, time.Second, stateIs(c, StatePlaying))
	c.Toggle("http://a/2.mp3")
	eventually(t, time.Second, func() bool { return c.Status().URL == "http://a/2.mp3" && c.Status().State == StatePlaying })

	if b.live.Load() != 1 {
		t.Errorf("live handles = %d, want 1", b.live.Load())
	}
	if b.maxLive.Load() != 1 {
		t.Errorf("max live handles = %d, want 1", b.maxLive.Load())
	}
}

func TestToggle_FailureReturnsToIdle(t *testing.T) {
	b := newFakeBackend()
	b.fail["http://a/broken.mp3"] = errors.New("boom")

	var changes atomic.Int32
	c := NewController(b, WithLogger(quiet()), WithOnChange(func(Status) { changes.Add(1) }))
	c.Toggle("http://a/broken.mp3")
	eventually(t, time.Second, func() bool { return changes.Load() >= 2 })
	if st := c.Status(); st.State != StateIdle || st.URL != "" {
		t.Errorf("status = %+v, want idle", st)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestToggle_FailureIsLoggedWithAttributes(t *testing.T) {
	b := newFakeBackend()
	b.fail["http://a/broken.mp3"] = errors.New("boom")

	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	var changes atomic.Int32
	c := NewController(b, WithLogger(logger), WithOnChange(func(Status) { changes.Add(1) }))
	c.Toggle("http://a/broken.mp3")
	eventually(t, time.Second, func() bool { return changes.Load() >= 2 })

	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &rec); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if rec["level"] != "WARN" || rec["url"] != "http://a/broken.mp3" {
		t.Errorf("record = %v", rec)
	}
	msg, _ := rec["error"].(string)
	if !strings.Contains(msg, "playback failed") || !strings.Contains(msg, "boom") {
		t.Errorf("error attr = %v", rec["error"])
	}
}

func TestEndOfStreamReturnsToIdle(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))
	c.Toggle("http://a/1.mp3")
	eventually(t, time.Second, stateIs(c, StatePlaying))

	b.handle(0).finish()
	eventually(t, time.Second, stateIs(c, StateIdle))
	if b.live.Load() != 0 {
		t.Errorf("live handles = %d, want 0", b.live.Load())
	}
}

func TestStop(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, WithLogger(quiet()))
	c.Toggle("http://a/1.mp3")
	eventually(t, time.Second, stateIs(c, StatePlaying))

	c.Stop()
	if c.Status().State != StateIdle || b.live.Load() != 0 {
		t.Errorf("status = %+v live = %d", c.Status(), b.live.Load())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func TestStreamBackend(t *testing.T) {
	audio := bytes.Repeat([]byte{0x42}, 100_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer srv.Close()

	sink := &syncBuffer{}
	b := NewStreamBackend(srv.Client(), func() io.Writer { return sink })

	h, err := b.Open(context.Background(), srv.URL+"/ok.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if h.ID() == "" {
		t.Error("empty handle id")
	}
	if err := h.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
	if sink.Len() != len(audio) {
		t.Errorf("sink got %d bytes, want %d", sink.Len(), len(audio))
	}

	if _, err := b.Open(context.Background(), srv.URL+"/missing.mp3"); err == nil {
		t.Error("404 should fail to open")
	}
}

func TestStreamBackend_CloseWhilePaused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("abc"))
	}))
	defer srv.Close()

	b := NewStreamBackend(srv.Client(), nil)
	h, err := b.Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h.Close()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("closed stream did not finish")
	}
	if err := h.Play(); err == nil {
		t.Error("Play after Close should fail")
	}
}
