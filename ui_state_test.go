package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/config"
)

func TestUIConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, path := loadUIConfig(dir)
	require.Equal(t, filepath.Join(dir, "ui.yaml"), path)
	require.Equal(t, &uiConfig{}, cfg)

	show := false
	cfg.PageSize = 100
	cfg.MainTabType = "apple"
	cfg.ShowPreview = &show
	cfg.Pinned = []int64{7}
	require.NoError(t, saveUIConfig(cfg, path))

	loaded, _ := loadUIConfig(dir)
	require.Equal(t, 100, loaded.PageSize)
	require.Equal(t, "apple", loaded.MainTabType)
	require.False(t, boolOr(loaded.ShowPreview, true))
	require.True(t, boolOr(loaded.ShowLogs, true))
	require.Equal(t, []int64{7}, loaded.Pinned)
}

func TestUIConfigIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ui.yaml"), []byte("page_size: [oops"), 0o644))
	cfg, _ := loadUIConfig(dir)
	require.Equal(t, &uiConfig{}, cfg)
}

func TestUIConfigNormalises(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ui.yaml"), []byte("page_size: -5\nmain_tab_type: \" Android \"\n"), 0o644))
	cfg, _ := loadUIConfig(dir)
	require.Zero(t, cfg.PageSize)
	require.Equal(t, "android", cfg.MainTabType)
}

func TestTogglePin(t *testing.T) {
	cfg := &uiConfig{}
	require.True(t, cfg.togglePin(3))
	require.True(t, cfg.togglePin(5))
	require.True(t, cfg.isPinned(3))
	require.False(t, cfg.togglePin(3))
	require.False(t, cfg.isPinned(3))
	require.Equal(t, []int64{5}, cfg.Pinned)
}

func TestTelemetryAppendsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.ndjson")
	tl := newTelemetryLogger(path, "s-1", "anna")
	tl.Emit(telemetryEvent{Event: "subtab_open", TabID: 1, SubtabID: 2})
	tl.Emit(telemetryEvent{Event: "  "})
	tl.Emit(telemetryEvent{Event: "sort", Extra: map[string]string{"by": "name"}})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []telemetryEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev telemetryEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	require.Equal(t, "s-1", events[0].SessionID)
	require.Equal(t, "anna", events[0].UserID)
	require.EqualValues(t, 2, events[0].SubtabID)
	require.Equal(t, "name", events[1].Extra["by"])
	require.False(t, events[1].Timestamp.IsZero())

	var nilLogger *telemetryLogger
	nilLogger.Emit(telemetryEvent{Event: "ignored"})
}

func TestTelemetryRotatesLargeJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	tl := newTelemetryLogger(path, "s-1", "")
	tl.maxBytes = 200
	for i := 0; i < 5; i++ {
		tl.Emit(telemetryEvent{Event: "search", Extra: map[string]string{"term": "display"}})
	}

	rotated, err := os.Stat(path + ".1")
	require.NoError(t, err)
	require.LessOrEqual(t, rotated.Size(), int64(200))
	current, err := os.Stat(path)
	require.NoError(t, err)
	require.LessOrEqual(t, current.Size(), int64(200))
}

func TestTelemetryFromConfig(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, telemetryFromConfig(config.EventsConfig{File: filepath.Join(dir, "e.ndjson"), Disabled: true}, zerolog.Nop()))
	require.Nil(t, telemetryFromConfig(config.EventsConfig{}, zerolog.Nop()))

	tl := telemetryFromConfig(config.EventsConfig{File: filepath.Join(dir, "e.ndjson"), Operator: " anna ", MaxBytes: 1024}, zerolog.Nop())
	require.NotNil(t, tl)
	require.Equal(t, "anna", tl.userID)
	require.EqualValues(t, 1024, tl.maxBytes)
	require.NotEmpty(t, tl.sessionID)
}
