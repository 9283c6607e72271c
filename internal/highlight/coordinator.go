// Package highlight locates a search term inside an opened document and
// drives the scroll, fade and clear effects on a timer.
package highlight

import (
	"sync"
	"time"

	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/search"
)

// Default effect delays.
const (
	DefaultFadeDelay  = 500 * time.Millisecond
	DefaultClearDelay = 3 * time.Second
)

// Effects receives highlight instructions. Calls may come from timer
// goroutines.
type Effects interface {
	ScrollTo(block int)
	Fade(block int)
	Clear()
}

// Coordinator schedules the effects for one highlight at a time.
type Coordinator struct {
	effects    Effects
	fadeDelay  time.Duration
	clearDelay time.Duration

	mu     sync.Mutex
	gen    uint64
	timers []*time.Timer
}

// New creates a coordinator. Non-positive delays use the defaults.
func New(effects Effects, fadeDelay, clearDelay time.Duration) *Coordinator {
	if fadeDelay <= 0 {
		fadeDelay = DefaultFadeDelay
	}
	if clearDelay <= 0 {
		clearDelay = DefaultClearDelay
	}
	return &Coordinator{effects: effects, fadeDelay: fadeDelay, clearDelay: clearDelay}
}

// Apply scrolls to the first block containing query and schedules the fade
// and clear. Without a match the highlight is cleared at once. It reports
// whether a block matched.
func (c *Coordinator) Apply(doc models.Document, query string) (int, bool) {
	c.mu.Lock()
	c.stopLocked()
	gen := c.gen
	c.mu.Unlock()

	idx, ok := search.LocateFirstMatch(doc, query)
	if !ok {
		c.effects.Clear()
		return 0, false
	}

	c.effects.ScrollTo(idx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return idx, true
	}
	c.timers = append(c.timers,
		time.AfterFunc(c.fadeDelay, func() { c.fire(gen, func() { c.effects.Fade(idx) }) }),
		time.AfterFunc(c.clearDelay, func() { c.fire(gen, c.effects.Clear) }),
	)
	return idx, true
}

// Cancel stops pending effects.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// fire runs fn unless the highlight it belongs to was superseded.
func (c *Coordinator) fire(gen uint64, fn func()) {
	c.mu.Lock()
	current := gen == c.gen
	c.mu.Unlock()
	if current {
		fn()
	}
}

func (c *Coordinator) stopLocked() {
	c.gen++
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}
