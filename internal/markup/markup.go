// Package markup splits devotion text into styled segments: **bold**,
// *italic* and case-insensitive highlight matches.
package markup

import (
	"regexp"
	"strings"

	"github.com/starford/morninglight/internal/models"
)

var emphasisRe = regexp.MustCompile(`\*\*.*?\*\*|\*.*?\*`)

// Segment is a run of text with uniform styling.
type Segment struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Segments parses inline emphasis in text and marks every occurrence of
// highlight. The highlight term is matched literally.
func Segments(text, highlight string) []Segment {
	if text == "" {
		return nil
	}
	var hl *regexp.Regexp
	if strings.TrimSpace(highlight) != "" {
		hl = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(highlight))
	}
	return parse(text, hl, Segment{})
}

func parse(text string, hl *regexp.Regexp, style Segment) []Segment {
	var out []Segment
	last := 0
	for _, loc := range emphasisRe.FindAllStringIndex(text, -1) {
		out = append(out, highlightRuns(text[last:loc[0]], hl, style)...)
		part := text[loc[0]:loc[1]]
		inner := style
		switch {
		case len(part) >= 4 && strings.HasPrefix(part, "**") && strings.HasSuffix(part, "**"):
			inner.Bold = true
			part = part[2 : len(part)-2]
		default:
			inner.Italic = true
			part = part[1 : len(part)-1]
		}
		out = append(out, parse(part, hl, inner)...)
		last = loc[1]
	}
	return append(out, highlightRuns(text[last:], hl, style)...)
}

func highlightRuns(text string, hl *regexp.Regexp, style Segment) []Segment {
	if text == "" {
		return nil
	}
	if hl == nil {
		style.Text = text
		return []Segment{style}
	}
	var out []Segment
	last := 0
	for _, loc := range hl.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			s := style
			s.Text = text[last:loc[0]]
			out = append(out, s)
		}
		s := style
		s.Text = text[loc[0]:loc[1]]
		s.Highlight = true
		out = append(out, s)
		last = loc[1]
	}
	if last < len(text) {
		s := style
		s.Text = text[last:]
		out = append(out, s)
	}
	return out
}

// Paragraphs splits block content on newlines and drops blank lines.
func Paragraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Rendered is a block prepared for display.
type Rendered struct {
	Kind       string      `json:"kind"`
	Heading    []Segment   `json:"heading,omitempty"`
	Reference  string      `json:"reference,omitempty"`
	Paragraphs [][]Segment `json:"paragraphs,omitempty"`
}

// Render prepares every block of doc, applying highlight. The result is
// index-aligned with doc.Blocks, so block indexes from search address it
// directly; the meta block becomes the header entry.
func Render(doc models.Document, highlight string) []Rendered {
	out := make([]Rendered, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		switch v := b.(type) {
		case models.MetaBlock:
			r := Rendered{Kind: v.Kind(), Heading: Segments(v.Title, highlight)}
			if v.Subtitle != "" {
				r.Paragraphs = [][]Segment{Segments(v.Subtitle, highlight)}
			}
			out = append(out, r)
		case models.VerseBlock:
			r := Rendered{Kind: v.Kind(), Reference: v.Reference}
			if v.Text != "" {
				r.Paragraphs = [][]Segment{Segments(v.Text, highlight)}
			}
			out = append(out, r)
		case models.TextBlock:
			r := Rendered{Kind: v.Kind(), Heading: Segments(v.Title, highlight)}
			for _, p := range Paragraphs(v.Content) {
				r.Paragraphs = append(r.Paragraphs, Segments(p, highlight))
			}
			out = append(out, r)
		}
	}
	return out
}
