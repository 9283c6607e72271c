package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Content     ContentConfig     `yaml:"content"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Highlight   HighlightConfig   `yaml:"highlight"`
	Session     SessionConfig     `yaml:"session"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Preferences.Validate(); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	if err := c.Highlight.Validate(); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return c.Session.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// ContentConfig describes where devotions are fetched from.
//
// Root is either an http(s) base URL or a local directory (optionally as a
// file:// URL). Watch only applies to local roots.
type ContentConfig struct {
	Root        string        `yaml:"root"`
	Timeout     time.Duration `yaml:"timeout"`
	Prefetch    bool          `yaml:"prefetch"`
	Concurrency int           `yaml:"concurrency"`
	Watch       bool          `yaml:"watch"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Concurrency, validation.Min(0)),
	)
}

// Remote reports whether Root points at an HTTP server.
func (c *ContentConfig) Remote() bool {
	return strings.HasPrefix(c.Root, "http://") || strings.HasPrefix(c.Root, "https://")
}

// PreferencesConfig holds the SQLite database used for preferences.
type PreferencesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the preferences configuration.
func (c *PreferencesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PlaybackConfig tunes the audio controller.
type PlaybackConfig struct {
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Validate validates the playback configuration.
func (c *PlaybackConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// HighlightConfig holds the search highlight timings.
type HighlightConfig struct {
	FadeDelay  time.Duration `yaml:"fade_delay"`
	ClearDelay time.Duration `yaml:"clear_delay"`
}

// Validate validates the highlight configuration.
func (c *HighlightConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.FadeDelay, validation.Required),
		validation.Field(&c.ClearDelay, validation.Required),
	); err != nil {
		return err
	}
	if c.ClearDelay <= c.FadeDelay {
		return fmt.Errorf("clear_delay (%s) must be longer than fade_delay (%s)", c.ClearDelay, c.FadeDelay)
	}
	return nil
}

// SessionConfig seeds the session.
type SessionConfig struct {
	// InitialLocation is the address the session starts from, "/" by default.
	InitialLocation string `yaml:"initial_location"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	if c.InitialLocation == "" {
		c.InitialLocation = "/"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.InitialLocation, validation.By(func(v any) error {
			if s, _ := v.(string); !strings.HasPrefix(s, "/") {
				return fmt.Errorf("must start with /")
			}
			return nil
		})),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Root:        "./content",
			Timeout:     15 * time.Second,
			Prefetch:    true,
			Concurrency: 8,
			Watch:       true,
		},
		Preferences: PreferencesConfig{
			Path: "./morninglight.db",
		},
		Playback: PlaybackConfig{
			OpenTimeout: 30 * time.Second,
		},
		Highlight: HighlightConfig{
			FadeDelay:  500 * time.Millisecond,
			ClearDelay: 3 * time.Second,
		},
		Session: SessionConfig{
			InitialLocation: "/",
		},
	}
}
