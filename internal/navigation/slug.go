// Package navigation owns the view state and keeps it in sync with the
// address bar and history stack.
package navigation

import (
	"strings"
	"time"

	"github.com/starford/morninglight/internal/models"
)

// Root is the canonical list-view location.
const Root = "/"

// FormatSlug encodes (date, lang) as DD-MM-YYYY-LANG.
func FormatSlug(date time.Time, lang models.Language) string {
	return models.CacheKey(date, lang)
}

// Path returns the canonical detail-view location for (date, lang).
func Path(date time.Time, lang models.Language) string {
	return "/" + FormatSlug(date, lang)
}

// ParseSlug decodes a location path of the form [/]DD-MM-YYYY-LANG.
// The language token is case-insensitive. Anything else, including the root
// path, reports ok=false.
func ParseSlug(path string) (date time.Time, lang models.Language, ok bool) {
	slug := strings.TrimPrefix(path, "/")
	parts := strings.Split(slug, "-")
	if len(parts) != 4 {
		return time.Time{}, "", false
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return time.Time{}, "", false
	}
	lang, ok = models.ParseLanguage(parts[3])
	if !ok || parts[3] != strings.TrimSpace(parts[3]) {
		return time.Time{}, "", false
	}
	date, err := models.ParseFilenameDate(strings.Join(parts[:3], "-"))
	if err != nil {
		return time.Time{}, "", false
	}
	return date, lang, true
}
