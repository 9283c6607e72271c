// Package models defines the domain types for morninglight.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Language is a content language.
type Language string

// Supported languages.
const (
	English Language = "EN"
	Tamil   Language = "TA"
)

// Languages lists every supported language in search order.
var Languages = []Language{English, Tamil}

// ParseLanguage parses a language token case-insensitively.
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToUpper(strings.TrimSpace(s))) {
	case English:
		return English, true
	case Tamil:
		return Tamil, true
	}
	return "", false
}

// Other returns the opposite language.
func (l Language) Other() Language {
	if l == Tamil {
		return English
	}
	return Tamil
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == English || l == Tamil
}

// Theme is the display theme preference.
type Theme string

// Supported themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Date layouts.
const (
	isoLayout      = "2006-01-02"
	filenameLayout = "02-01-2006"
)

// ParseISODate parses a YYYY-MM-DD calendar day as UTC midnight.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(isoLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseFilenameDate parses a DD-MM-YYYY calendar day as UTC midnight.
func ParseFilenameDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(filenameLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return t, nil
}

// ISODate formats t as YYYY-MM-DD.
func ISODate(t time.Time) string { return t.Format(isoLayout) }

// FilenameDate formats t as DD-MM-YYYY.
func FilenameDate(t time.Time) string { return t.Format(filenameLayout) }

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CacheKey returns the content key for a (date, language) pair, e.g. 05-03-2024-TA.
func CacheKey(date time.Time, lang Language) string {
	return FilenameDate(date) + "-" + string(lang)
}

// DocumentName returns the remote file name of a document.
func DocumentName(date time.Time, lang Language) string {
	return CacheKey(date, lang) + ".json"
}

// ManifestName is the remote file name of the manifest.
const ManifestName = "manifest.json"

// EntryTitle holds a per-language title in the manifest.
type EntryTitle struct {
	Title string `json:"title"`
}

// ManifestEntry is one dated devotional listed in the manifest.
type ManifestEntry struct {
	Date   time.Time
	Titles map[Language]EntryTitle
}

type manifestEntryJSON struct {
	Date string     `json:"date"`
	EN   EntryTitle `json:"EN"`
	TA   EntryTitle `json:"TA"`
}

// UnmarshalJSON decodes {date, EN:{title}, TA:{title}}.
func (e *ManifestEntry) UnmarshalJSON(data []byte) error {
	var raw manifestEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseISODate(raw.Date)
	if err != nil {
		return err
	}
	e.Date = date
	e.Titles = map[Language]EntryTitle{English: raw.EN, Tamil: raw.TA}
	return nil
}

// MarshalJSON encodes the entry in the manifest wire format.
func (e ManifestEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(manifestEntryJSON{
		Date: ISODate(e.Date),
		EN:   e.Titles[English],
		TA:   e.Titles[Tamil],
	})
}

// Title returns the entry title in lang, falling back to the other language.
func (e ManifestEntry) Title(lang Language) string {
	if t := e.Titles[lang].Title; t != "" {
		return t
	}
	return e.Titles[lang.Other()].Title
}

// Manifest is the ordered list of available entries, in fetched order.
type Manifest []ManifestEntry

// DecodeManifest parses a manifest payload.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("models: decode manifest: %w", err)
	}
	return m, nil
}

// Sorted returns a copy ordered ascending by date.
func (m Manifest) Sorted() Manifest {
	out := make(Manifest, len(m))
	copy(out, m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Find returns the entry for date.
func (m Manifest) Find(date time.Time) (ManifestEntry, bool) {
	for _, e := range m {
		if e.Date.Equal(date) {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Prev returns the closest earlier date present in the manifest.
// It reports false when date is not listed or is already the first.
func (m Manifest) Prev(date time.Time) (time.Time, bool) {
	sorted := m.Sorted()
	for i, e := range sorted {
		if e.Date.Equal(date) {
			if i == 0 {
				return time.Time{}, false
			}
			return sorted[i-1].Date, true
		}
	}
	return time.Time{}, false
}

// Next returns the closest later date present in the manifest.
func (m Manifest) Next(date time.Time) (time.Time, bool) {
	sorted := m.Sorted()
	for i, e := range sorted {
		if e.Date.Equal(date) {
			if i == len(sorted)-1 {
				return time.Time{}, false
			}
			return sorted[i+1].Date, true
		}
	}
	return time.Time{}, false
}
