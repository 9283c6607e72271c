// Package preferences holds the user's display preferences and persists them
// in a SQLite key-value table.
package preferences

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/morninglight/internal/models"
)

// Font size bounds, in pixels.
const (
	MinFontSize     = 12
	MaxFontSize     = 24
	DefaultFontSize = 16
)

// Persisted keys.
const (
	KeyLanguage = "devotionLanguage"
	KeyTheme    = "devotionTheme"
	KeyFontSize = "devotionFontSize"
)

// Preferences is the persisted display state.
type Preferences struct {
	Language models.Language `json:"language"`
	Theme    models.Theme    `json:"theme"`
	FontSize int             `json:"font_size"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Preferences {
	return Preferences{
		Language: models.English,
		Theme:    models.ThemeLight,
		FontSize: DefaultFontSize,
	}
}

// Validate validates the preferences.
func (p Preferences) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Language, validation.Required, validation.In(models.English, models.Tamil)),
		validation.Field(&p.Theme, validation.Required, validation.In(models.ThemeLight, models.ThemeDark)),
		validation.Field(&p.FontSize, validation.Min(MinFontSize), validation.Max(MaxFontSize)),
	)
}

// ToggleLanguage switches between the two content languages.
func (p *Preferences) ToggleLanguage() bool {
	p.Language = p.Language.Other()
	return true
}

// ToggleTheme switches between light and dark.
func (p *Preferences) ToggleTheme() bool {
	if p.Theme == models.ThemeDark {
		p.Theme = models.ThemeLight
	} else {
		p.Theme = models.ThemeDark
	}
	return true
}

// AdjustFontSize changes the font size by delta, clamped to the allowed
// range. It reports whether the stored value changed.
func (p *Preferences) AdjustFontSize(delta int) bool {
	next := ClampFontSize(p.FontSize + delta)
	if next == p.FontSize {
		return false
	}
	p.FontSize = next
	return true
}

// ClampFontSize bounds n to [MinFontSize, MaxFontSize].
func ClampFontSize(n int) int {
	return min(max(n, MinFontSize), MaxFontSize)
}
