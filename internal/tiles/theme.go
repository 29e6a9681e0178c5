// Package tiles implements the tile navigation theme: a drill-down from
// product categories to tabs, subtabs and finally the product table.
package tiles

import (
	"strings"
	"sync"
)

// Themes.
const (
	ThemeClassic = "classic"
	ThemeTile    = "tile"
	DefaultTheme = ThemeTile
)

// ThemeStore persists the chosen theme.
type ThemeStore interface {
	LoadTheme() string
	SaveTheme(theme string) error
}

// ParseTheme normalises a theme name. Unknown names report false.
func ParseTheme(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ThemeClassic:
		return ThemeClassic, true
	case ThemeTile:
		return ThemeTile, true
	}
	return "", false
}

// ThemeManager holds the active theme.
type ThemeManager struct {
	store ThemeStore

	mu    sync.Mutex
	theme string
}

// NewThemeManager loads the stored theme, falling back to DefaultTheme.
// store may be nil.
func NewThemeManager(store ThemeStore) *ThemeManager {
	theme := DefaultTheme
	if store != nil {
		if parsed, ok := ParseTheme(store.LoadTheme()); ok {
			theme = parsed
		}
	}
	return &ThemeManager{store: store, theme: theme}
}

// Theme returns the active theme.
func (m *ThemeManager) Theme() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Tile reports whether the tile theme is active.
func (m *ThemeManager) Tile() bool {
	return m.Theme() == ThemeTile
}

// Set switches to theme and persists it. Unknown themes are ignored.
func (m *ThemeManager) Set(theme string) error {
	parsed, ok := ParseTheme(theme)
	if !ok {
		return nil
	}
	m.mu.Lock()
	m.theme = parsed
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.SaveTheme(parsed)
}

// Toggle flips between the classic and tile themes.
func (m *ThemeManager) Toggle() (string, error) {
	next := ThemeTile
	if m.Theme() == ThemeTile {
		next = ThemeClassic
	}
	return next, m.Set(next)
}
