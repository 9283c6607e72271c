package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Block kinds as they appear in the "type" tag.
const (
	KindMeta       = "meta"
	KindVerse      = "verse"
	KindParagraph  = "paragraph"
	KindLesson     = "lesson"
	KindPrayer     = "prayer"
	KindSubheading = "subheading"
)

// Block is one structural unit of a Document. The set of implementations is
// closed: MetaBlock, VerseBlock and TextBlock.
type Block interface {
	Kind() string
	// Strings returns the block's string fields in declaration order,
	// skipping empty optional fields.
	Strings() []string
	block()
}

// MetaBlock carries the document header. Exactly one exists per Document and it is first.
type MetaBlock struct {
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	Language   Language `json:"language"`
	Date       string   `json:"date"`
	YouTubeURL string   `json:"youtubeUrl,omitempty"`
	PDFURL     string   `json:"pdfUrl,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	AudioURL   string   `json:"audioUrl,omitempty"`
}

func (MetaBlock) Kind() string { return KindMeta }
func (MetaBlock) block()       {}

func (b MetaBlock) Strings() []string {
	return nonEmpty(b.Title, b.Subtitle, string(b.Language), b.Date, b.YouTubeURL, b.PDFURL, b.ImageURL, b.AudioURL)
}

// VerseBlock is a scripture verse with its reference.
type VerseBlock struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

func (VerseBlock) Kind() string { return KindVerse }
func (VerseBlock) block()       {}

func (b VerseBlock) Strings() []string { return nonEmpty(b.Reference, b.Text) }

// TextBlock is a prose section: paragraph, lesson, prayer or subheading.
type TextBlock struct {
	TextKind string `json:"-"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
}

func (b TextBlock) Kind() string { return b.TextKind }
func (TextBlock) block()         {}

func (b TextBlock) Strings() []string { return nonEmpty(b.Title, b.Content) }

func nonEmpty(fields ...string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// BlockText joins a block's string fields with single spaces.
func BlockText(b Block) string {
	return strings.Join(b.Strings(), " ")
}

// ErrInvalidDocument is returned when a payload is not a well-formed Document.
var ErrInvalidDocument = errors.New("invalid document")

// Document is the full content for one (date, language) pair.
type Document struct {
	Date     time.Time
	Language Language
	Blocks   []Block
}

// Meta returns the document's header block.
func (d Document) Meta() (MetaBlock, bool) {
	if len(d.Blocks) == 0 {
		return MetaBlock{}, false
	}
	m, ok := d.Blocks[0].(MetaBlock)
	return m, ok
}

// Empty reports whether the document has no blocks.
func (d Document) Empty() bool { return len(d.Blocks) == 0 }

// Text concatenates the string fields of every block in document order.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if s := BlockText(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

type rawBlock struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Language  string `json:"language"`
	Date      string `json:"date"`
	YouTube   string `json:"youtubeUrl"`
	PDF       string `json:"pdfUrl"`
	Image     string `json:"imageUrl"`
	Audio     string `json:"audioUrl"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
	Content   string `json:"content"`
}

// DecodeDocument parses and validates a document payload. Blocks with an
// unrecognized type tag are skipped. The result must contain exactly one
// meta block, in first position.
func DecodeDocument(date time.Time, lang Language, data []byte) (Document, error) {
	var raws []rawBlock
	if err := json.Unmarshal(data, &raws); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc := Document{Date: date, Language: lang, Blocks: make([]Block, 0, len(raws))}
	metas := 0
	for _, r := range raws {
		b, ok := r.toBlock()
		if !ok {
			continue
		}
		if b.Kind() == KindMeta {
			if len(doc.Blocks) != 0 {
				return Document{}, fmt.Errorf("%w: meta block is not first", ErrInvalidDocument)
			}
			metas++
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	if metas != 1 {
		return Document{}, fmt.Errorf("%w: found %d meta blocks", ErrInvalidDocument, metas)
	}
	return doc, nil
}

func (r rawBlock) toBlock() (Block, bool) {
	switch kind := strings.ToLower(r.Type); kind {
	case KindMeta:
		lang, _ := ParseLanguage(r.Language)
		return MetaBlock{
			Title:      r.Title,
			Subtitle:   r.Subtitle,
			Language:   lang,
			Date:       r.Date,
			YouTubeURL: r.YouTube,
			PDFURL:     r.PDF,
			ImageURL:   r.Image,
			AudioURL:   r.Audio,
		}, true
	case KindVerse:
		return VerseBlock{Reference: r.Reference, Text: r.Text}, true
	case KindParagraph, KindLesson, KindPrayer, KindSubheading:
		title := r.Title
		if title == "" {
			title = r.Subtitle
		}
		content := r.Content
		if content == "" {
			content = r.Text
		}
		return TextBlock{TextKind: kind, Title: title, Content: content}, true
	}
	return nil, false
}

// MarshalJSON encodes the document as its wire array of tagged blocks.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make([]map[string]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		m := map[string]string{"type": b.Kind()}
		switch v := b.(type) {
		case MetaBlock:
			m["title"] = v.Title
			m["subtitle"] = v.Subtitle
			m["language"] = string(v.Language)
			m["date"] = v.Date
			setOpt(m, "youtubeUrl", v.YouTubeURL)
			setOpt(m, "pdfUrl", v.PDFURL)
			setOpt(m, "imageUrl", v.ImageURL)
			setOpt(m, "audioUrl", v.AudioURL)
		case VerseBlock:
			m["reference"] = v.Reference
			m["text"] = v.Text
		case TextBlock:
			if v.TextKind == KindSubheading {
				m["type"] = "Subheading"
			}
			setOpt(m, "title", v.Title)
			m["content"] = v.Content
		}
		out = append(out, m)
	}
	return json.Marshal(out)
}

func setOpt(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
