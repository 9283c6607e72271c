package session

import (
	"time"

	"github.com/starford/morninglight/internal/navigation"
)

// SelectEntry opens the document for date. A non-empty query is carried as
// the highlight term.
func (s *Session) SelectEntry(date time.Time, query string) (Snapshot, error) {
	return s.call(func() {
		s.transition(func() { s.machine.Select(date, query) })
	})
}

// SubmitSearch shows results for query. Blank queries are ignored.
func (s *Session) SubmitSearch(query string) (Snapshot, error) {
	return s.call(func() {
		s.transition(func() { s.machine.Search(query) })
	})
}

// ToggleLanguage switches the content language. The preference follows.
func (s *Session) ToggleLanguage() (Snapshot, error) {
	return s.call(func() {
		s.transition(func() { s.machine.SetLanguage(s.machine.State().Language.Other()) })
	})
}

// ToggleTheme switches between light and dark.
func (s *Session) ToggleTheme() (Snapshot, error) {
	return s.call(func() {
		s.prefs.ToggleTheme()
		s.savePrefs()
		s.publishState()
	})
}

// ChangeFontSize adjusts the font size by delta within the allowed range.
func (s *Session) ChangeFontSize(delta int) (Snapshot, error) {
	return s.call(func() {
		if s.prefs.AdjustFontSize(delta) {
			s.savePrefs()
			s.publishState()
		}
	})
}

// ToggleAudio plays or pauses the audio of the document on screen.
func (s *Session) ToggleAudio() (Snapshot, error) {
	return s.call(func() {
		if s.machine.State().View != navigation.ViewDetail || s.doc.status != StatusReady {
			return
		}
		meta, ok := s.doc.doc.Meta()
		if !ok {
			return
		}
		s.player.Toggle(meta.AudioURL)
	})
}

// GoHome returns to the list view.
func (s *Session) GoHome() (Snapshot, error) {
	return s.call(func() {
		s.transition(s.machine.Home)
	})
}

// PopState applies an external history navigation to location.
func (s *Session) PopState(location string) (Snapshot, error) {
	return s.call(func() {
		s.transition(func() {
			s.history.Visit(location)
			s.machine.PopState()
		})
	})
}

// NextDay moves to the next date listed in the manifest.
func (s *Session) NextDay() (Snapshot, error) {
	return s.call(func() {
		if date, ok := s.manifest.entries.Next(s.machine.State().Date); ok {
			s.transition(func() { s.machine.SetDate(date) })
		}
	})
}

// PrevDay moves to the previous date listed in the manifest.
func (s *Session) PrevDay() (Snapshot, error) {
	return s.call(func() {
		if date, ok := s.manifest.entries.Prev(s.machine.State().Date); ok {
			s.transition(func() { s.machine.SetDate(date) })
		}
	})
}

// PickDate jumps to date, keeping the current view.
func (s *Session) PickDate(date time.Time) (Snapshot, error) {
	return s.call(func() {
		s.transition(func() { s.machine.SetDate(date) })
	})
}
