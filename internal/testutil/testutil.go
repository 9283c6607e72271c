// Package testutil provides shared test helpers: fixture content roots and
// a temporary preferences database.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/morninglight/internal/preferences"
)

// ContentServer is an httptest server that serves a mutable set of content files.
type ContentServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
	gate  map[string]chan struct{}
}

// NewContentServer starts a server serving files (name → body).
func NewContentServer(t *testing.T, files map[string]string) *ContentServer {
	t.Helper()
	cs := &ContentServer{
		files: make(map[string]string, len(files)),
		hits:  make(map[string]int),
		gate:  make(map[string]chan struct{}),
	}
	for k, v := range files {
		cs.files[k] = v
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.serve))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *ContentServer) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	cs.mu.Lock()
	cs.hits[name]++
	gate := cs.gate[name]
	cs.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	cs.mu.Lock()
	body, ok := cs.files[name]
	cs.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// Set adds or replaces a file.
func (cs *ContentServer) Set(name, body string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.files[name] = body
}

// Remove deletes a file so it answers 404.
func (cs *ContentServer) Remove(name string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.files, name)
}

// Hits returns how many requests name has received.
func (cs *ContentServer) Hits(name string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[name]
}

// Hold makes requests for name block until the returned release func is called.
func (cs *ContentServer) Hold(name string) (release func()) {
	ch := make(chan struct{})
	cs.mu.Lock()
	cs.gate[name] = ch
	cs.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			cs.mu.Lock()
			delete(cs.gate, name)
			cs.mu.Unlock()
			close(ch)
		})
	}
}

// ContentDir writes files into a temporary directory and returns its path.
func ContentDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// Entry describes a manifest entry fixture.
type Entry struct {
	Date    string // YYYY-MM-DD
	TitleEN string
	TitleTA string
}

// Manifest renders a manifest.json payload.
func Manifest(entries ...Entry) string {
	type title struct {
		Title string `json:"title"`
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"date": e.Date,
			"EN":   title{e.TitleEN},
			"TA":   title{e.TitleTA},
		})
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// Document renders a document payload with a meta block followed by one
// paragraph per body string.
func Document(title, lang, date, audioURL string, paragraphs ...string) string {
	blocks := []map[string]string{{
		"type":     "meta",
		"title":    title,
		"subtitle": "",
		"language": lang,
		"date":     date,
	}}
	if audioURL != "" {
		blocks[0]["audioUrl"] = audioURL
	}
	for _, p := range paragraphs {
		blocks = append(blocks, map[string]string{"type": "paragraph", "content": p})
	}
	data, _ := json.Marshal(blocks)
	return string(data)
}

// TestPrefs opens a temporary preferences database that is cleaned up with the test.
func TestPrefs(t *testing.T) *preferences.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "morninglight-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := preferences.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
