package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// event mirrors one line of ui-events.ndjson.
type event struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	TabID     int64             `json:"tab_id,omitempty"`
	SubtabID  int64             `json:"subtab_id,omitempty"`
	ProductID int64             `json:"product_id,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	line      int
}

type counted struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type sessionSummary struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Seconds   float64   `json:"seconds"`
	Events    int       `json:"events"`
}

type report struct {
	Source         string           `json:"source"`
	Events         int              `json:"events"`
	SkippedLines   []int            `json:"skipped_lines,omitempty"`
	ByEvent        []counted        `json:"by_event"`
	TopSubtabs     []counted        `json:"top_subtabs"`
	TopSearches    []counted        `json:"top_searches"`
	Sessions       []sessionSummary `json:"sessions"`
	MedianSessionS float64          `json:"median_session_seconds"`
	StockRefreshes int              `json:"stock_refreshes"`
	ColumnsMoved   int              `json:"columns_moved"`
	ThemeSwitches  map[string]int   `json:"theme_switches,omitempty"`
	FirstEvent     time.Time        `json:"first_event"`
	LastEvent      time.Time        `json:"last_event"`
}

func main() {
	var inputPath string
	var outputPath string
	var top int
	flag.StringVar(&inputPath, "in", "", "ui-events.ndjson path (required)")
	flag.StringVar(&outputPath, "out", "", "output JSON path (optional, defaults to stdout)")
	flag.IntVar(&top, "top", 10, "entries kept in the top lists")
	flag.Parse()

	if inputPath == "" {
		exit(errors.New("missing --in path"))
	}
	if top <= 0 {
		exit(errors.New("--top must be positive"))
	}

	file, err := os.Open(inputPath)
	if err != nil {
		exit(err)
	}
	defer file.Close()

	events, skipped, err := parseEvents(file)
	if err != nil {
		exit(fmt.Errorf("parse events: %w", err))
	}
	rep := buildReport(inputPath, events, top)
	rep.SkippedLines = skipped

	encoded, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		exit(fmt.Errorf("encode report: %w", err))
	}
	if outputPath == "" {
		fmt.Println(string(encoded))
		return
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		exit(err)
	}
	if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
		exit(fmt.Errorf("write output: %w", err))
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "eventsummary: %v\n", err)
	os.Exit(1)
}

// parseEvents reads ndjson events. Lines that do not decode are reported by
// number and skipped.
func parseEvents(r io.Reader) ([]event, []int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var (
		events  []event
		skipped []int
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var ev event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil || ev.Event == "" {
			skipped = append(skipped, lineNo)
			continue
		}
		ev.line = lineNo
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return events, skipped, nil
}

func buildReport(source string, events []event, top int) report {
	rep := report{Source: source, Events: len(events)}
	if len(events) == 0 {
		return rep
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	rep.FirstEvent = events[0].Timestamp
	rep.LastEvent = events[len(events)-1].Timestamp

	byEvent := make(map[string]int)
	subtabs := make(map[string]int)
	searches := make(map[string]int)
	sessions := make(map[string]*sessionSummary)
	var order []string

	for _, ev := range events {
		byEvent[ev.Event]++
		switch ev.Event {
		case "subtab_open":
			if ev.SubtabID != 0 {
				subtabs[strconv.FormatInt(ev.SubtabID, 10)]++
			}
		case "search":
			if term := strings.ToLower(strings.TrimSpace(ev.Extra["term"])); term != "" {
				searches[term]++
			}
		case "stock_refresh":
			rep.StockRefreshes++
		case "column_move":
			rep.ColumnsMoved++
		case "theme_toggle":
			if rep.ThemeSwitches == nil {
				rep.ThemeSwitches = make(map[string]int)
			}
			rep.ThemeSwitches[ev.Extra["theme"]]++
		}

		if ev.SessionID == "" {
			continue
		}
		s, ok := sessions[ev.SessionID]
		if !ok {
			s = &sessionSummary{SessionID: ev.SessionID, UserID: ev.UserID, Start: ev.Timestamp}
			sessions[ev.SessionID] = s
			order = append(order, ev.SessionID)
		}
		s.End = ev.Timestamp
		s.Events++
	}

	rep.ByEvent = topCounts(byEvent, 0)
	rep.TopSubtabs = topCounts(subtabs, top)
	rep.TopSearches = topCounts(searches, top)

	durations := make([]float64, 0, len(order))
	for _, id := range order {
		s := sessions[id]
		s.Seconds = s.End.Sub(s.Start).Seconds()
		durations = append(durations, s.Seconds)
		rep.Sessions = append(rep.Sessions, *s)
	}
	rep.MedianSessionS = median(durations)
	return rep
}

// topCounts sorts by count, then key. limit <= 0 keeps everything.
func topCounts(counts map[string]int, limit int) []counted {
	out := make([]counted, 0, len(counts))
	for k, n := range counts {
		out = append(out, counted{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
