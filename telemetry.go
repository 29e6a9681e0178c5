package main

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/config"
)

// telemetryEvent is one line of ui-events.ndjson.
type telemetryEvent struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	TabID     int64             `json:"tab_id,omitempty"`
	SubtabID  int64             `json:"subtab_id,omitempty"`
	ProductID int64             `json:"product_id,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// telemetryLogger appends operator activity to an ndjson journal. When the
// journal would grow past maxBytes it is moved aside to <path>.1 and a new one
// is started.
type telemetryLogger struct {
	mu        sync.Mutex
	path      string
	sessionID string
	userID    string
	maxBytes  int64
	log       zerolog.Logger
	warned    bool
}

func newTelemetryLogger(path, sessionID, userID string) *telemetryLogger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &telemetryLogger{
		path:      path,
		sessionID: strings.TrimSpace(sessionID),
		userID:    strings.TrimSpace(userID),
		log:       zerolog.Nop(),
	}
}

// telemetryFromConfig builds the journal described by cfg, or nil when it is
// switched off.
func telemetryFromConfig(cfg config.EventsConfig, log zerolog.Logger) *telemetryLogger {
	if cfg.Disabled || strings.TrimSpace(cfg.File) == "" {
		return nil
	}
	t := newTelemetryLogger(cfg.File, newTelemetrySessionID(), resolveTelemetryUserID(cfg.Operator))
	t.maxBytes = cfg.MaxBytes
	t.log = log.With().Str("events", cfg.File).Logger()
	return t
}

func (t *telemetryLogger) Emit(event telemetryEvent) {
	if t == nil {
		return
	}
	event.Event = strings.TrimSpace(event.Event)
	if event.Event == "" {
		return
	}
	if event.SessionID == "" {
		event.SessionID = t.sessionID
	}
	if strings.TrimSpace(event.UserID) == "" {
		event.UserID = t.userID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(event.Extra) == 0 {
		event.Extra = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.Marshal(event)
	if err != nil {
		t.fail(err)
		return
	}
	data = append(data, '\n')
	if err := t.rotate(int64(len(data))); err != nil {
		t.fail(err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.fail(err)
		return
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		t.fail(err)
	}
}

func (t *telemetryLogger) rotate(incoming int64) error {
	if t.maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(t.path)
	if err != nil || info.Size()+incoming <= t.maxBytes {
		return nil
	}
	return os.Rename(t.path, t.path+".1")
}

// fail reports only the first write problem. Callers hold mu.
func (t *telemetryLogger) fail(err error) {
	if t.warned {
		return
	}
	t.warned = true
	t.log.Warn().Err(err).Msg("write ui event")
}

func newTelemetrySessionID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func resolveTelemetryUserID(operator string) string {
	if trimmed := strings.TrimSpace(operator); trimmed != "" {
		return trimmed
	}
	if u, err := user.Current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return strings.TrimSpace(u.Username)
	}
	for _, key := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
