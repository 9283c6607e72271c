package navigation

import "sync"

// History is the address bar and history stack the machine reconciles with.
type History interface {
	// Location returns the current path.
	Location() string
	// Push adds a new entry and makes it current.
	Push(path string)
	// Replace rewrites the current entry without adding one.
	Replace(path string)
}

// MemoryHistory is a browser-like history stack. It mirrors the location of
// a remote client and backs the machine in tests and headless use.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
	pushes  int
}

// NewMemoryHistory creates a history whose only entry is initial.
func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = Root
	}
	return &MemoryHistory{entries: []string{initial}}
}

func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], path)
	h.index++
	h.pushes++
}

func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = path
}

// Back moves one entry back, like the browser back button. It reports false
// at the start of the stack.
func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward.
func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Visit records an externally observed location (a client popstate). If the
// path is a neighbouring entry the index moves there; otherwise it replaces
// the current entry.
func (h *MemoryHistory) Visit(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.index > 0 && h.entries[h.index-1] == path:
		h.index--
	case h.index < len(h.entries)-1 && h.entries[h.index+1] == path:
		h.index++
	default:
		h.entries[h.index] = path
	}
}

// Len returns the number of entries on the stack.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Pushes returns how many times Push has been called.
func (h *MemoryHistory) Pushes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushes
}
