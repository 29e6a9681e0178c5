// Package prefs is the scoped local key-value cache for UI preferences.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/remstock/catalog-tui/internal/columns"
)

// Preference keys. The suffix is the document schema version.
const (
	KeyColumnsVisibility = "columnsVisibility.v1"
	KeyColumnOrder       = "columnOrder.v1"
	KeyTheme             = "ui-theme.v1"
)

// Store keeps JSON documents per scope in a sqlite file. A nil *Store is
// valid: loads return defaults and saves are dropped.
type Store struct {
	db    *sql.DB
	path  string
	scope string
	log   zerolog.Logger
}

// DefaultPath is the preferences database under the user config directory.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "prefs.sqlite")
}

// Open opens or creates the database at path. scope partitions keys, so
// different backends keep separate layouts.
func Open(path, scope string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:    db,
		path:  path,
		scope: strings.TrimSpace(scope),
		log:   log.With().Str("component", "prefs").Logger(),
	}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS kv (
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (scope, key)
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("prefs store migration failed: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the raw document stored under key.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Put stores a raw document under key.
func (s *Store) Put(key string, value []byte) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO kv (scope, key, value) VALUES (?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.scope, key, string(value))
	return err
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM kv WHERE scope = ? AND key = ?`, s.scope, key)
	return err
}

func (s *Store) putJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

func (s *Store) read(key string) []byte {
	data, ok, err := s.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("read preference")
		return nil
	}
	if !ok {
		return nil
	}
	return data
}

// LoadVisibility returns stored column visibility merged over the defaults.
// Missing or corrupt documents give the defaults.
func (s *Store) LoadVisibility() columns.Visibility {
	if s == nil {
		return columns.DefaultVisibility()
	}
	v, err := columns.DecodeVisibility(s.read(KeyColumnsVisibility))
	if err != nil {
		s.log.Warn().Err(err).Str("key", KeyColumnsVisibility).Msg("discarding corrupt preference")
	}
	return v
}

// SaveVisibility persists column visibility.
func (s *Store) SaveVisibility(v columns.Visibility) error {
	if s == nil {
		return nil
	}
	return s.putJSON(KeyColumnsVisibility, v)
}

// LoadOrder returns the stored column order or the default static order.
func (s *Store) LoadOrder() []string {
	if s == nil {
		return columns.StaticKeys()
	}
	order, err := columns.DecodeOrder(s.read(KeyColumnOrder))
	if err != nil {
		s.log.Warn().Err(err).Str("key", KeyColumnOrder).Msg("discarding corrupt preference")
	}
	if len(order) == 0 {
		return columns.StaticKeys()
	}
	return order
}

// SaveOrder persists the column order verbatim.
func (s *Store) SaveOrder(order []string) error {
	if s == nil {
		return nil
	}
	return s.putJSON(KeyColumnOrder, order)
}

// LoadTheme returns the stored theme name, empty when unset or unreadable.
func (s *Store) LoadTheme() string {
	if s == nil {
		return ""
	}
	data := s.read(KeyTheme)
	if len(data) == 0 {
		return ""
	}
	var theme string
	if err := json.Unmarshal(data, &theme); err != nil {
		// Older writers stored the bare name.
		return strings.TrimSpace(string(data))
	}
	return theme
}

// SaveTheme persists the theme name.
func (s *Store) SaveTheme(theme string) error {
	if s == nil {
		return nil
	}
	return s.putJSON(KeyTheme, theme)
}
