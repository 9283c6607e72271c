package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestContentConfig_Remote(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example.com/ml": true,
		"http://localhost:9000":      true,
		"./content":                  false,
		"file:///srv/content":        false,
	}
	for root, want := range cases {
		c := ContentConfig{Root: root}
		if got := c.Remote(); got != want {
			t.Errorf("Remote(%q) = %v, want %v", root, got, want)
		}
	}
}

func TestContentConfig_RootRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Root = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty root should fail validation")
	}
	if !strings.HasPrefix(err.Error(), "content:") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHTTPConfig_InvalidPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
}

func TestHighlightConfig_Ordering(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Highlight.ClearDelay = 100 * time.Millisecond
	err := cfg.Validate()
	if err == nil {
		t.Fatal("clear before fade should fail validation")
	}
	if !strings.Contains(err.Error(), "must be longer") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPlaybackConfig_TimeoutFloor(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Playback.OpenTimeout = 10 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("sub-second open timeout should fail validation")
	}
}

func TestSessionConfig_InitialLocation(t *testing.T) {
	c := SessionConfig{}
	if err := c.Validate(); err != nil {
		t.Fatalf("empty location should default: %v", err)
	}
	if c.InitialLocation != "/" {
		t.Errorf("location = %q, want /", c.InitialLocation)
	}

	c = SessionConfig{InitialLocation: "05-03-2024-EN"}
	if err := c.Validate(); err == nil {
		t.Error("relative location should fail validation")
	}
}
