package preferences

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/morninglight/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store persists preferences in SQLite.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("preferences: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("preferences: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("preferences: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load reads stored preferences. Absent or invalid values fall back to
// defaults; the font size is clamped.
func (s *Store) Load() (Preferences, error) {
	p := Defaults()

	lang, err := s.get(KeyLanguage)
	if err != nil {
		return p, err
	}
	if l, ok := models.ParseLanguage(lang); ok {
		p.Language = l
	}

	theme, err := s.get(KeyTheme)
	if err != nil {
		return p, err
	}
	if t := models.Theme(theme); t == models.ThemeLight || t == models.ThemeDark {
		p.Theme = t
	}

	size, err := s.get(KeyFontSize)
	if err != nil {
		return p, err
	}
	if n, convErr := strconv.Atoi(size); convErr == nil {
		p.FontSize = ClampFontSize(n)
	}
	return p, nil
}

// Save writes every preference within a transaction.
func (s *Store) Save(p Preferences) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("preferences: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("preferences: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preferences: prepare upsert: %w", err)
	}
	defer stmt.Close()

	values := [][2]string{
		{KeyLanguage, string(p.Language)},
		{KeyTheme, string(p.Theme)},
		{KeyFontSize, strconv.Itoa(p.FontSize)},
	}
	for _, kv := range values {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("preferences: upsert %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

// get returns the stored value for key, or "" if absent.
func (s *Store) get(key string) (string, error) {
	var v string
	err := s.conn.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("preferences: get %s: %w", key, err)
	}
	return v, nil
}

// Set writes a single raw value. Intended for migrations and tests.
func (s *Store) Set(key, value string) error {
	_, err := s.conn.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("preferences: set %s: %w", key, err)
	}
	return nil
}
