// Package playback controls the single audio stream of a devotion.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/morninglight/internal/apperr"
)

// State is the playback state.
type State string

// States.
const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Handle is an opened audio stream.
type Handle interface {
	ID() string
	Play() error
	Pause()
	Close() error
	// Done is closed when the stream ends or fails.
	Done() <-chan struct{}
}

// Backend opens audio streams. Open returns once the stream is ready to play.
type Backend interface {
	Open(ctx context.Context, url string) (Handle, error)
}

// Status is a snapshot of the controller.
type Status struct {
	State    State  `json:"state"`
	URL      string `json:"url,omitempty"`
	HandleID string `json:"handle_id,omitempty"`
}

// Controller owns at most one live handle. A generation counter guards
// against readiness signals that arrive after the user moved on.
type Controller struct {
	backend     Backend
	logger      *slog.Logger
	openTimeout time.Duration
	onChange    func(Status)

	mu     sync.Mutex
	state  State
	url    string
	handle Handle
	gen    uint64
	cancel context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithOpenTimeout bounds how long a stream may take to become ready.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *Controller) { c.openTimeout = d }
}

// WithOnChange registers a callback invoked after every state change. It
// is called without the controller lock held.
func WithOnChange(fn func(Status)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// NewController creates an idle controller.
func NewController(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:     b,
		logger:      slog.Default(),
		openTimeout: 30 * time.Second,
		state:       StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Status returns the current state and URL.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Toggle plays, pauses or resumes url. An empty url is a no-op. Toggling a
// different url releases the current stream first.
func (c *Controller) Toggle(url string) {
	if url == "" {
		return
	}

	c.mu.Lock()
	switch {
	case c.url == url && c.state == StatePlaying:
		c.handle.Pause()
		c.state = StatePaused
		st := c.statusLocked()
		c.mu.Unlock()
		c.notify(st)
		return

	case c.url == url && c.state == StatePaused:
		if err := c.handle.Play(); err != nil {
			c.releaseLocked()
			st := c.statusLocked()
			c.mu.Unlock()
			c.logger.Warn("audio resume failed", slog.String("url", url), slog.String("error", fmt.Errorf("%w: %v", apperr.ErrPlaybackFailed, err).Error()))
			c.notify(st)
			return
		}
		c.state = StatePlaying
		st := c.statusLocked()
		c.mu.Unlock()
		c.notify(st)
		return

	case c.url == url && c.state == StateLoading:
		// Second toggle while loading cancels the pending open.
		c.releaseLocked()
		st := c.statusLocked()
		c.mu.Unlock()
		c.notify(st)
		return
	}

	c.releaseLocked()
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithTimeout(context.Background(), c.openTimeout)
	c.cancel = cancel
	c.state = StateLoading
	c.url = url
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)

	go c.open(ctx, gen, url)
}

// Stop releases the current stream and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateIdle && c.handle == nil {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	st := c.statusLocked()
	c.mu.Unlock()
	c.notify(st)
}

func (c *Controller) open(ctx context.Context, gen uint64, url string) {
	h, err := c.backend.Open(ctx, url)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if h != nil {
			_ = h.Close()
		}
		return
	}
	if err == nil {
		err = h.Play()
		if err != nil {
			_ = h.Close()
		}
	}
	if err != nil {
		c.releaseLocked()
		st := c.statusLocked()
		c.mu.Unlock()
		c.logger.Warn("audio playback failed", slog.String("url", url), slog.String("error", fmt.Errorf("%w: %v", apperr.ErrPlaybackFailed, err).Error()))
		c.notify(st)
		return
	}

	// The open context only bounds readiness.
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.handle = h
	c.state = StatePlaying
	st := c.statusLocked()
	c.mu.Unlock()
	c.logger.Info("audio playing", slog.String("url", url), slog.String("handle", h.ID()))
	c.notify(st)

	<-h.Done()
	c.ended(gen, h)
}

// ended returns to idle when the live handle finishes on its own.
func (c *Controller) ended(gen uint64, h Handle) {
	c.mu.Lock()
	if gen != c.gen || c.handle != h {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	st := c.statusLocked()
	c.mu.Unlock()
	if e, ok := h.(interface{ Err() error }); ok && e.Err() != nil {
		c.logger.Warn("audio stream failed", slog.String("handle", h.ID()), slog.String("error", fmt.Errorf("%w: %v", apperr.ErrPlaybackFailed, e.Err()).Error()))
	} else {
		c.logger.Debug("audio ended", slog.String("handle", h.ID()))
	}
	c.notify(st)
}

// releaseLocked closes the live handle, cancels any pending open and bumps
// the generation so late results are discarded.
func (c *Controller) releaseLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.handle != nil {
		_ = c.handle.Close()
		c.handle = nil
	}
	c.state = StateIdle
	c.url = ""
}

func (c *Controller) statusLocked() Status {
	st := Status{State: c.state, URL: c.url}
	if c.handle != nil {
		st.HandleID = c.handle.ID()
	}
	return st
}

func (c *Controller) notify(st Status) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
