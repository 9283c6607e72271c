package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// StreamBackend streams audio over HTTP. A stream is ready once the server
// answers with a 2xx status; the body is then copied to the sink while
// playing and held while paused.
type StreamBackend struct {
	client *http.Client
	sink   func() io.Writer
}

// NewStreamBackend creates a backend. A nil sink discards audio bytes, which
// is what a headless server wants.
func NewStreamBackend(client *http.Client, sink func() io.Writer) *StreamBackend {
	if client == nil {
		client = http.DefaultClient
	}
	if sink == nil {
		sink = func() io.Writer { return io.Discard }
	}
	return &StreamBackend{client: client, sink: sink}
}

// Open issues the request and waits for the response headers.
func (b *StreamBackend) Open(ctx context.Context, url string) (Handle, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("playback: build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if !stop() {
		// Readiness timed out or was cancelled.
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("playback: open %s: %w", url, context.Cause(ctx))
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("playback: open %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("playback: open %s: status %d", url, resp.StatusCode)
	}

	s := &stream{
		id:     uuid.NewString(),
		body:   resp.Body,
		sink:   b.sink(),
		cancel: cancel,
		done:   make(chan struct{}),
		resume: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

type stream struct {
	id     string
	body   io.ReadCloser
	sink   io.Writer
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	playing bool
	resume  chan struct{}
	closed  bool
	err     error
}

func (s *stream) ID() string            { return s.id }
func (s *stream) Done() <-chan struct{} { return s.done }

// Play starts or resumes copying.
func (s *stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("playback: stream closed")
	}
	if !s.playing {
		s.playing = true
		close(s.resume)
	}
	return nil
}

// Pause holds the copy loop at its next chunk boundary.
func (s *stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing && !s.closed {
		s.playing = false
		s.resume = make(chan struct{})
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if !s.playing {
		close(s.resume)
	}
	s.mu.Unlock()
	s.cancel()
	return s.body.Close()
}

// Err reports why the stream ended, if it failed.
func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) run() {
	defer close(s.done)
	buf := make([]byte, 32*1024)
	for {
		if !s.waitPlaying() {
			return
		}
		n, err := s.body.Read(buf)
		if n > 0 {
			if _, werr := s.sink.Write(buf[:n]); werr != nil {
				s.fail(werr)
				return
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			s.fail(err)
			return
		}
	}
}

// waitPlaying blocks while paused. It returns false once the stream is closed.
func (s *stream) waitPlaying() bool {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return false
		}
		if s.playing {
			s.mu.Unlock()
			return true
		}
		resume := s.resume
		s.mu.Unlock()

		<-resume
	}
}

func (s *stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.err = err
	}
}
