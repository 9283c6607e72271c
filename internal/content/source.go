// Package content fetches and caches the manifest and dated documents.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/morninglight/internal/apperr"
)

// Source is a read-only, eventually-consistent content root.
type Source interface {
	// Fetch returns the raw bytes of name (e.g. "manifest.json").
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Name   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content: fetch %s: status %d", e.Name, e.Status)
}

// Unwrap maps 404 onto apperr.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return nil
}

// HTTPSource fetches files from a static HTTP root.
type HTTPSource struct {
	root   string
	client *http.Client
}

const maxPayload = 8 << 20

// NewHTTPSource creates an HTTP source rooted at root.
func NewHTTPSource(root string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		root:   strings.TrimRight(root, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch issues GET <root>/<name>.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.root+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("content: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "morninglight/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content: fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Name: name, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", name, err)
	}
	return data, nil
}

// NewSource picks a local directory source for plain paths and file:// URLs,
// and an HTTP source otherwise.
func NewSource(root string, timeout time.Duration) (Source, error) {
	switch {
	case strings.HasPrefix(root, "http://"), strings.HasPrefix(root, "https://"):
		return NewHTTPSource(root, timeout), nil
	case strings.HasPrefix(root, "file://"):
		return NewFS(strings.TrimPrefix(root, "file://"))
	default:
		return NewFS(root)
	}
}

// LocalRoot returns the directory behind src, if it is a local source.
func LocalRoot(src Source) (string, bool) {
	if fs, ok := src.(*FS); ok {
		return fs.root, true
	}
	return "", false
}
