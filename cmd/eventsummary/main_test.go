package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `{"session_id":"a","user_id":"anna","timestamp":"2026-03-01T10:00:00Z","event":"tab_select","tab_id":1}
{"session_id":"a","timestamp":"2026-03-01T10:00:05Z","event":"subtab_open","tab_id":1,"subtab_id":7}
not json
{"session_id":"a","timestamp":"2026-03-01T10:01:00Z","event":"search","extra":{"term":" Display "}}

{"session_id":"b","timestamp":"2026-03-01T11:00:00Z","event":"subtab_open","subtab_id":7}
{"session_id":"b","timestamp":"2026-03-01T11:00:30Z","event":"subtab_open","subtab_id":9}
{"session_id":"b","timestamp":"2026-03-01T11:02:00Z","event":"search","extra":{"term":"display"}}
{"session_id":"b","timestamp":"2026-03-01T11:03:00Z","event":"theme_toggle","extra":{"theme":"tiles"}}
{"session_id":"b","timestamp":"2026-03-01T11:04:00Z","event":"column_move","extra":{"column":"photos","target":"name"}}
{"session_id":"b","timestamp":"2026-03-01T11:05:00Z","event":"stock_refresh"}
{"session_id":"c","timestamp":"2026-03-01T12:00:00Z","event":""}
`

func TestParseEventsSkipsBadLines(t *testing.T) {
	events, skipped, err := parseEvents(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, events, 9)
	require.Equal(t, []int{3, 12}, skipped)
	require.Equal(t, 2, events[1].line)
}

func TestBuildReport(t *testing.T) {
	events, _, err := parseEvents(strings.NewReader(sample))
	require.NoError(t, err)
	rep := buildReport("events.ndjson", events, 1)

	require.Equal(t, 9, rep.Events)
	require.Equal(t, counted{Key: "subtab_open", Count: 3}, rep.ByEvent[0])
	require.Equal(t, []counted{{Key: "7", Count: 2}}, rep.TopSubtabs)
	require.Equal(t, []counted{{Key: "display", Count: 2}}, rep.TopSearches)
	require.Equal(t, 1, rep.StockRefreshes)
	require.Equal(t, 1, rep.ColumnsMoved)
	require.Equal(t, map[string]int{"tiles": 1}, rep.ThemeSwitches)

	require.Len(t, rep.Sessions, 2)
	require.Equal(t, "a", rep.Sessions[0].SessionID)
	require.Equal(t, "anna", rep.Sessions[0].UserID)
	require.Equal(t, 60.0, rep.Sessions[0].Seconds)
	require.Equal(t, 300.0, rep.Sessions[1].Seconds)
	require.Equal(t, 180.0, rep.MedianSessionS)
	require.Equal(t, "2026-03-01T11:05:00Z", rep.LastEvent.Format("2006-01-02T15:04:05Z07:00"))
}

func TestBuildReportEmpty(t *testing.T) {
	rep := buildReport("x", nil, 5)
	require.Zero(t, rep.Events)
	require.Empty(t, rep.Sessions)
	require.Zero(t, rep.MedianSessionS)
}

func TestMedian(t *testing.T) {
	require.Equal(t, 2.0, median([]float64{3, 1, 2}))
	require.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}
