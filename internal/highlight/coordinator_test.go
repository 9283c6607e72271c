package highlight

import (
	"sync"
	"testing"
	"time"

	"github.com/starford/morninglight/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	blocks []int
}

func (r *recorder) ScrollTo(i int) { r.add("scroll", i) }
func (r *recorder) Fade(i int)     { r.add("fade", i) }
func (r *recorder) Clear()         { r.add("clear", -1) }

func (r *recorder) add(ev string, i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.blocks = append(r.blocks, i)
}

func (r *recorder) snapshot() ([]string, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]int(nil), r.blocks...)
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

func doc() models.Document {
	return models.Document{
		Language: models.English,
		Blocks: []models.Block{
			models.MetaBlock{Title: "Morning Light"},
			models.VerseBlock{Reference: "Ps 23:1", Text: "The Lord is my shepherd"},
			models.TextBlock{TextKind: models.KindParagraph, Content: "Amazing GRACE abounds."},
		},
	}
}

func TestApply_ScrollFadeClear(t *testing.T) {
	r := &recorder{}
	c := New(r, 10*time.Millisecond, 40*time.Millisecond)

	idx, ok := c.Apply(doc(), "grace")
	if !ok || idx != 2 {
		t.Fatalf("Apply = %d %v, want 2 true", idx, ok)
	}
	eventually(t, time.Second, func() bool {
		ev, _ := r.snapshot()
		return len(ev) == 3
	})
	ev, blocks := r.snapshot()
	if ev[0] != "scroll" || ev[1] != "fade" || ev[2] != "clear" {
		t.Errorf("events = %v", ev)
	}
	if blocks[0] != 2 || blocks[1] != 2 {
		t.Errorf("blocks = %v", blocks)
	}
}

func TestApply_NoMatchClearsImmediately(t *testing.T) {
	r := &recorder{}
	c := New(r, time.Hour, time.Hour)
	if _, ok := c.Apply(doc(), "absent"); ok {
		t.Fatal("unexpected match")
	}
	ev, _ := r.snapshot()
	if len(ev) != 1 || ev[0] != "clear" {
		t.Errorf("events = %v", ev)
	}
}

func TestCancel_StopsPendingEffects(t *testing.T) {
	r := &recorder{}
	c := New(r, 20*time.Millisecond, 30*time.Millisecond)
	c.Apply(doc(), "shepherd")
	c.Cancel()

	time.Sleep(80 * time.Millisecond)
	ev, _ := r.snapshot()
	if len(ev) != 1 || ev[0] != "scroll" {
		t.Errorf("events = %v, want only scroll", ev)
	}
}

func TestApply_SupersedesPrevious(t *testing.T) {
	r := &recorder{}
	c := New(r, 20*time.Millisecond, 30*time.Millisecond)
	c.Apply(doc(), "shepherd")
	c.Apply(doc(), "grace")

	eventually(t, time.Second, func() bool {
		ev, _ := r.snapshot()
		return len(ev) == 4
	})
	time.Sleep(50 * time.Millisecond)
	ev, blocks := r.snapshot()
	if len(ev) != 4 {
		t.Fatalf("events = %v", ev)
	}
	if blocks[2] != 2 || ev[2] != "fade" {
		t.Errorf("events = %v blocks = %v", ev, blocks)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(&recorder{}, 0, -1)
	if c.fadeDelay != DefaultFadeDelay || c.clearDelay != DefaultClearDelay {
		t.Errorf("delays = %v %v", c.fadeDelay, c.clearDelay)
	}
}
