package content

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReloadsManifestAndRefreshesDocuments(t *testing.T) {
	dir := testutil.ContentDir(t, fixtureFiles())
	src, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(src, WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.LoadManifest(ctx); err != nil {
		t.Fatal(err)
	}
	d := mustDate(t, "2024-01-01")
	if _, err := store.Get(ctx, d, models.English); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var events []string
	go Watch(ctx, store, dir, quiet, func(kind, name string) {
		mu.Lock()
		events = append(events, kind+":"+name)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	manifest := testutil.Manifest(
		testutil.Entry{Date: "2024-01-01", TitleEN: "Grace"},
		testutil.Entry{Date: "2024-01-02", TitleEN: "Peace"},
		testutil.Entry{Date: "2024-01-03", TitleEN: "Joy"},
	)
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return len(store.Manifest()) == 3
	}, "manifest was not reloaded")

	doc := testutil.Document("Grace Renewed", "EN", "2024-01-01", "")
	if err := os.WriteFile(filepath.Join(dir, "01-01-2024-EN.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		got, ok := store.Lookup(d, models.English)
		meta, _ := got.Meta()
		return ok && meta.Title == "Grace Renewed"
	}, "document was not refreshed")

	mu.Lock()
	defer mu.Unlock()
	var sawManifest, sawDoc bool
	for _, e := range events {
		switch e {
		case EventManifestReloaded + ":manifest.json":
			sawManifest = true
		case EventDocumentRefreshed + ":01-01-2024-EN":
			sawDoc = true
		}
	}
	if !sawManifest || !sawDoc {
		t.Errorf("events = %v", events)
	}
}

func TestParseDocumentName(t *testing.T) {
	d, lang, ok := parseDocumentName("05-03-2024-ta.json")
	if !ok || lang != models.Tamil || models.ISODate(d) != "2024-03-05" {
		t.Errorf("parse = %v %v %v", d, lang, ok)
	}
	for _, bad := range []string{"manifest.json", "2024-03-05-EN.json", "05-03-2024-FR.json", "x.json"} {
		if _, _, ok := parseDocumentName(bad); ok {
			t.Errorf("%q should not parse", bad)
		}
	}
}
