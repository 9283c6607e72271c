package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/starford/morninglight/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := testutil.ContentDir(t, map[string]string{
		"manifest.json": testutil.Manifest(
			testutil.Entry{Date: "2024-03-05", TitleEN: "Grace", TitleTA: "Kirubai"},
			testutil.Entry{Date: "2024-03-06", TitleEN: "Peace", TitleTA: "Samadhanam"},
		),
		"05-03-2024-EN.json": testutil.Document("Grace", "EN", "2024-03-05", "", "His grace is sufficient."),
		"05-03-2024-TA.json": testutil.Document("Kirubai", "TA", "2024-03-05", ""),
		"06-03-2024-EN.json": testutil.Document("Peace", "EN", "2024-03-06", "", "Peace be still."),
	})
	cfg := NewDefaultConfig()
	cfg.Content.Root = root
	return cfg
}

func TestRunSearch(t *testing.T) {
	var out bytes.Buffer
	err := RunSearch(context.Background(), "GRACE", WithConfig(testConfig(t)), WithOutput(&out), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var hit SearchHit
	if err := json.Unmarshal([]byte(lines[0]), &hit); err != nil {
		t.Fatal(err)
	}
	if hit.Date != "2024-03-05" || hit.Path != "/05-03-2024-EN" || hit.Title != "Grace" {
		t.Errorf("hit = %+v", hit)
	}
}

func TestRunSearch_NoManifest(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Root = t.TempDir()
	err := RunSearch(context.Background(), "grace", WithConfig(cfg), WithOutput(io.Discard), WithLogOutput(io.Discard))
	if err == nil {
		t.Fatal("expected manifest error")
	}
}

func TestRunPrefetch(t *testing.T) {
	var out bytes.Buffer
	if err := RunPrefetch(context.Background(), WithConfig(testConfig(t)), WithOutput(&out), WithLogOutput(io.Discard)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "3 loaded, 1 not available") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCommands_RequireConfig(t *testing.T) {
	if err := RunPrefetch(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
