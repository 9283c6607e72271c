// Package search implements full-text search over the cached devotional corpus.
//
// The index is not maintained incrementally: every query rescans whatever the
// content store has materialized, which is bounded by the manifest size.
package search

import (
	"strings"
	"time"
	"unicode"

	"github.com/starford/morninglight/internal/models"
)

// DefaultContext is the number of runes kept on each side of a snippet match.
const DefaultContext = 40

const ellipsis = "..."

// Corpus is a cache-only view of the content store.
type Corpus interface {
	Lookup(date time.Time, lang models.Language) (models.Document, bool)
}

// Result is one search hit; a manifest date contributes at most one.
type Result struct {
	Entry    models.ManifestEntry `json:"entry"`
	Snippet  string               `json:"snippet"`
	Language models.Language      `json:"language"`
}

// Search runs query over the manifest's documents with the default snippet context.
func Search(query string, corpus Corpus, manifest models.Manifest) []Result {
	return Options{}.Search(query, corpus, manifest)
}

// Options tunes snippet construction.
type Options struct {
	Context int
}

// Search returns one result per matching manifest entry, in manifest order.
// Each entry's languages are checked in a fixed order and scanning stops at
// the first language that matches. A blank query returns nothing without
// touching the corpus.
func (o Options) Search(query string, corpus Corpus, manifest models.Manifest) []Result {
	if strings.TrimSpace(query) == "" {
		return []Result{}
	}
	width := o.Context
	if width <= 0 {
		width = DefaultContext
	}
	needle := fold(query)

	results := []Result{}
	added := make(map[time.Time]struct{})
	for _, entry := range manifest {
		if _, dup := added[entry.Date]; dup {
			continue
		}
		for _, lang := range models.Languages {
			doc, ok := corpus.Lookup(entry.Date, lang)
			if !ok || doc.Empty() {
				continue
			}
			if snippet, hit := match(doc, needle, width); hit {
				results = append(results, Result{Entry: entry, Snippet: snippet, Language: lang})
				added[entry.Date] = struct{}{}
				break
			}
		}
	}
	return results
}

func match(doc models.Document, needle []rune, width int) (string, bool) {
	if meta, ok := doc.Meta(); ok && indexFold(fold(meta.Title), needle) >= 0 {
		return meta.Title, true
	}
	text := []rune(doc.Text())
	at := indexFold(fold(string(text)), needle)
	if at < 0 {
		return "", false
	}
	return snippet(text, at, len(needle), width), true
}

// snippet cuts text around [at, at+n) with up to width runes of context on
// each side, marking clipped sides with an ellipsis.
func snippet(text []rune, at, n, width int) string {
	start := max(0, at-width)
	end := min(len(text), at+n+width)

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(text[start:end]))
	if end < len(text) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// LocateFirstMatch returns the index of the first block whose string fields
// contain query, case-insensitively.
func LocateFirstMatch(doc models.Document, query string) (int, bool) {
	if strings.TrimSpace(query) == "" {
		return 0, false
	}
	needle := fold(query)
	for i, b := range doc.Blocks {
		if indexFold(fold(models.BlockText(b)), needle) >= 0 {
			return i, true
		}
	}
	return 0, false
}

// fold lowercases rune by rune so indexes line up with the original text.
func fold(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
