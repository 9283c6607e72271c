package markup

import (
	"reflect"
	"testing"

	"github.com/starford/morninglight/internal/models"
)

func TestSegments_Plain(t *testing.T) {
	got := Segments("just text", "")
	want := []Segment{{Text: "just text"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if Segments("", "x") != nil {
		t.Error("empty text should yield no segments")
	}
}

func TestSegments_Emphasis(t *testing.T) {
	got := Segments("Be **still** and *know*.", "")
	want := []Segment{
		{Text: "Be "},
		{Text: "still", Bold: true},
		{Text: " and "},
		{Text: "know", Italic: true},
		{Text: "."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSegments_HighlightCaseInsensitive(t *testing.T) {
	got := Segments("Grace upon grace", "GRACE")
	want := []Segment{
		{Text: "Grace", Highlight: true},
		{Text: " upon "},
		{Text: "grace", Highlight: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSegments_HighlightInsideBold(t *testing.T) {
	got := Segments("**amazing grace**", "grace")
	want := []Segment{
		{Text: "amazing ", Bold: true},
		{Text: "grace", Bold: true, Highlight: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSegments_HighlightIsLiteral(t *testing.T) {
	got := Segments("costs $5 (a.k.a. five)", "(a.k.a.")
	if len(got) != 3 || !got[1].Highlight || got[1].Text != "(a.k.a." {
		t.Errorf("got %+v", got)
	}
	// A regex metacharacter must not match arbitrary text.
	for _, s := range Segments("abc", ".") {
		if s.Highlight {
			t.Errorf("'.' matched %q", s.Text)
		}
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("first\n\n  \nsecond\n")
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("got %q", got)
	}
}

func TestRender(t *testing.T) {
	doc := models.Document{Blocks: []models.Block{
		models.MetaBlock{Title: "Grace upon grace", Subtitle: "Day one"},
		models.VerseBlock{Reference: "John 1:16", Text: "grace for grace"},
		models.TextBlock{TextKind: models.KindPrayer, Title: "Pray", Content: "Lord,\n\ngive *grace*."},
	}}
	got := Render(doc, "grace")
	if len(got) != len(doc.Blocks) {
		t.Fatalf("rendered %d blocks, want %d", len(got), len(doc.Blocks))
	}
	if got[0].Kind != models.KindMeta || len(got[0].Heading) != 3 || !got[0].Heading[0].Highlight {
		t.Errorf("header = %+v", got[0])
	}
	if len(got[0].Paragraphs) != 1 || got[0].Paragraphs[0][0].Text != "Day one" {
		t.Errorf("subtitle = %+v", got[0].Paragraphs)
	}
	if got[1].Kind != models.KindVerse || got[1].Reference != "John 1:16" {
		t.Errorf("verse = %+v", got[1])
	}
	if got[2].Kind != models.KindPrayer || len(got[2].Paragraphs) != 2 {
		t.Fatalf("prayer = %+v", got[2])
	}
	last := got[2].Paragraphs[1]
	var found bool
	for _, s := range last {
		if s.Text == "grace" && s.Italic && s.Highlight {
			found = true
		}
	}
	if !found {
		t.Errorf("italic highlight missing in %+v", last)
	}
}
