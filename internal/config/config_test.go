package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATALOG_CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	require.Equal(t, 50, cfg.List.PageSize)
	require.Equal(t, 6, cfg.List.StockConcurrency)
	require.Equal(t, 400*time.Millisecond, cfg.List.SearchDebounce)
	require.Equal(t, 10000, cfg.List.SubtabResolveLimit)
	require.Equal(t, 3, cfg.Refresh.BatchSize)
	require.Equal(t, time.Second, cfg.Refresh.BatchDelay)
	require.Equal(t, cfg.API.BaseURL, cfg.Prefs.Scope)
	require.Equal(t, filepath.Join(dir, "catalog-tui.log"), cfg.Log.File)
	require.Equal(t, filepath.Join(dir, "ui-events.ndjson"), cfg.Events.File)
	require.EqualValues(t, 5<<20, cfg.Events.MaxBytes)
	require.False(t, cfg.Events.Disabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CATALOG_CONFIG_DIR", t.TempDir())
	t.Setenv("CATALOG_API_BASE_URL", "https://catalog.example.com/api/v1/")
	t.Setenv("CATALOG_PAGE_SIZE", "100")
	t.Setenv("CATALOG_PREFS_SCOPE", "staging")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://catalog.example.com/api/v1", cfg.API.BaseURL)
	require.Equal(t, 100, cfg.List.PageSize)
	require.Equal(t, "staging", cfg.Prefs.Scope)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CATALOG_API_BASE_URL", "not a url")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CATALOG_API_BASE_URL", "http://localhost:8000/api/v1")
	t.Setenv("CATALOG_PAGE_SIZE", "0")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("CATALOG_PAGE_SIZE", "abc")
	_, err = Load()
	require.Error(t, err)
}
