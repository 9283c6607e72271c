// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/morninglight/internal/api"
	"github.com/starford/morninglight/internal/content"
	"github.com/starford/morninglight/internal/playback"
	"github.com/starford/morninglight/internal/preferences"
	"github.com/starford/morninglight/internal/session"
	"github.com/starford/morninglight/internal/sse"
)

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{out: os.Stdout, logOut: logOut}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger initializes the structured JSON logger and sets it as default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// contentStore opens the configured content root.
func (a *application) contentStore(logger *slog.Logger) (*content.Store, content.Source, error) {
	cfg := a.config.Content
	src, err := content.NewSource(cfg.Root, cfg.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("init content source: %w", err)
	}
	store := content.NewStore(src,
		content.WithLogger(logger.With(slog.String("component", "content"))),
		content.WithConcurrency(cfg.Concurrency),
	)
	return store, src, nil
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("preferences_path", cfg.Preferences.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, src, err := app.contentStore(logger)
	if err != nil {
		return err
	}

	prefs, err := preferences.Open(cfg.Preferences.Path)
	if err != nil {
		return fmt.Errorf("init preferences: %w", err)
	}
	defer prefs.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	backend := playback.NewStreamBackend(&http.Client{}, nil)
	sess := session.New(store, prefs, backend, broker, session.Config{
		InitialLocation: cfg.Session.InitialLocation,
		Prefetch:        cfg.Content.Prefetch,
		FadeDelay:       cfg.Highlight.FadeDelay,
		ClearDelay:      cfg.Highlight.ClearDelay,
	}, logger.With(slog.String("component", "session")),
		playback.WithOpenTimeout(cfg.Playback.OpenTimeout),
	)

	apiRouter := api.NewRouter(sess, store, broker, cfg.App.HTTP.CORSOrigins)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if store.Manifest() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"manifest not loaded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Session loop.
	g.Go(func() error {
		return sess.Run(gCtx)
	})

	// Watch a local content root and push changes into the session.
	if root, ok := content.LocalRoot(src); ok && cfg.Content.Watch {
		g.Go(func() error {
			err := content.Watch(gCtx, store, root, logger.With(slog.String("component", "watcher")), sess.ContentChanged)
			if err != nil {
				logger.Warn("content watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams hold connections open; close the broker first so
		// Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
