package navigation

import (
	"strings"
	"time"

	"github.com/starford/morninglight/internal/models"
)

// View is the active screen.
type View string

// Views.
const (
	ViewList   View = "list"
	ViewDetail View = "detail"
	ViewSearch View = "search"
)

// State is the process-wide navigation state.
type State struct {
	View      View
	Date      time.Time
	Language  models.Language
	Highlight string
	Query     string
}

// Machine is the sole writer of State and of the history it is bound to.
// Internal transitions push to history; PopState pulls from it. It is not
// safe for concurrent use: its owner serializes calls.
type Machine struct {
	state   State
	history History
	pulling bool
}

// NewMachine creates a machine in the list view.
func NewMachine(h History, lang models.Language, today time.Time) *Machine {
	return &Machine{
		history: h,
		state:   State{View: ViewList, Date: models.Day(today), Language: lang},
	}
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// Location returns the history's current location.
func (m *Machine) Location() string { return m.history.Location() }

// Init derives the initial state from the current location.
func (m *Machine) Init() { m.PopState() }

// Select opens the detail view for date, optionally carrying a highlight term.
func (m *Machine) Select(date time.Time, highlight string) {
	m.state.View = ViewDetail
	m.state.Date = models.Day(date)
	m.state.Highlight = highlight
	m.push()
}

// Search moves to the search view for a non-blank query. The location is
// left untouched.
func (m *Machine) Search(query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}
	m.state.View = ViewSearch
	m.state.Query = query
	m.push()
	return true
}

// Home returns to the list view and drops search and highlight state.
func (m *Machine) Home() {
	m.state.View = ViewList
	m.state.Query = ""
	m.state.Highlight = ""
	m.push()
}

// SetLanguage switches the content language.
func (m *Machine) SetLanguage(lang models.Language) {
	if !lang.Valid() || lang == m.state.Language {
		return
	}
	m.state.Language = lang
	m.push()
}

// SetDate changes the date while keeping the current view.
func (m *Machine) SetDate(date time.Time) {
	m.state.Date = models.Day(date)
	m.push()
}

// ClearHighlight drops the pending highlight term.
func (m *Machine) ClearHighlight() { m.state.Highlight = "" }

// PopState re-derives (date, language) from the location after an external
// history navigation. Locations that do not encode a valid slug land in the
// list view and are canonicalized to the root without adding an entry.
func (m *Machine) PopState() {
	m.pulling = true
	defer func() { m.pulling = false }()

	loc := m.history.Location()
	date, lang, ok := ParseSlug(loc)
	if !ok {
		m.state.View = ViewList
		m.state.Highlight = ""
		if loc != Root {
			m.history.Replace(Root)
		}
		return
	}

	m.state.View = ViewDetail
	m.state.Date = date
	m.state.Language = lang
	if canonical := Path(date, lang); canonical != loc {
		m.history.Replace(canonical)
	}
}

// push reflects state into history after an internal transition. It never
// runs while a pull is being applied.
func (m *Machine) push() {
	if m.pulling {
		return
	}
	var want string
	switch m.state.View {
	case ViewDetail:
		want = Path(m.state.Date, m.state.Language)
	case ViewList:
		want = Root
	default:
		return
	}
	if m.history.Location() != want {
		m.history.Push(want)
	}
}
