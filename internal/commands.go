package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/starford/morninglight/internal/mcpserver"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/navigation"
	"github.com/starford/morninglight/internal/search"
)

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger()

	store, _, err := app.contentStore(logger)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("content_root", app.config.Content.Root))
	return mcpserver.New(store).ServeStdio()
}

// SearchHit is one line of `search` command output.
type SearchHit struct {
	Date     string          `json:"date"`
	Title    string          `json:"title"`
	Language models.Language `json:"language"`
	Path     string          `json:"path"`
	Snippet  string          `json:"snippet"`
}

// RunSearch prefetches the corpus and prints matches for query as JSON lines.
func RunSearch(ctx context.Context, query string, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger()

	store, _, err := app.contentStore(logger)
	if err != nil {
		return err
	}
	m, err := store.LoadManifest(ctx)
	if err != nil {
		return err
	}
	store.PrefetchAll(ctx, m, nil)

	enc := json.NewEncoder(app.out)
	for _, hit := range search.Search(query, store, m) {
		if err := enc.Encode(SearchHit{
			Date:     models.ISODate(hit.Entry.Date),
			Title:    hit.Entry.Title(hit.Language),
			Language: hit.Language,
			Path:     navigation.Path(hit.Entry.Date, hit.Language),
			Snippet:  hit.Snippet,
		}); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

// RunPrefetch loads every document once and reports how many are available.
func RunPrefetch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger()

	store, _, err := app.contentStore(logger)
	if err != nil {
		return err
	}
	m, err := store.LoadManifest(ctx)
	if err != nil {
		return err
	}

	bar := newProgressBar(app.out, len(m)*len(models.Languages))
	stats := store.PrefetchAll(ctx, m, func(key string, err error) {
		if err != nil {
			logger.Debug("prefetch miss", slog.String("key", key), slog.String("error", err.Error()))
		}
		bar.Describe(key)
		_ = bar.Add(1)
	})
	_ = bar.Finish()

	_, _ = fmt.Fprintf(app.out, "%d loaded, %d not available\n", stats.Loaded, stats.Failed)
	return ctx.Err()
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Prefetching"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
