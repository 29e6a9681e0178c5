// Package config loads the client's environment configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppDirName is the directory under the user config dir holding local state.
const AppDirName = "catalog-tui"

type Config struct {
	API     APIConfig
	List    ListConfig
	Refresh RefreshConfig
	Log     LogConfig
	Prefs   PrefsConfig
	Events  EventsConfig
}

type APIConfig struct {
	BaseURL string        `envconfig:"CATALOG_API_BASE_URL" default:"http://localhost:8000/api/v1"`
	Timeout time.Duration `envconfig:"CATALOG_HTTP_TIMEOUT" default:"30s"`
}

type ListConfig struct {
	PageSize            int           `envconfig:"CATALOG_PAGE_SIZE" default:"50"`
	StockConcurrency    int           `envconfig:"CATALOG_STOCK_CONCURRENCY" default:"6"`
	SearchDebounce      time.Duration `envconfig:"CATALOG_SEARCH_DEBOUNCE" default:"400ms"`
	SubtabResolveLimit  int           `envconfig:"CATALOG_SUBTAB_RESOLVE_LIMIT" default:"10000"`
	Collation           string        `envconfig:"CATALOG_COLLATION" default:"ru"`
	SyncPollInterval    time.Duration `envconfig:"CATALOG_SYNC_POLL_INTERVAL" default:"1s"`
	SyncStatusInterval  time.Duration `envconfig:"CATALOG_SYNC_STATUS_INTERVAL" default:"5s"`
	WarehouseFetchLimit int           `envconfig:"CATALOG_WAREHOUSE_LIMIT" default:"1000"`
}

type RefreshConfig struct {
	BatchSize  int           `envconfig:"CATALOG_REFRESH_BATCH_SIZE" default:"3"`
	BatchDelay time.Duration `envconfig:"CATALOG_REFRESH_BATCH_DELAY" default:"1s"`
}

type LogConfig struct {
	Level  string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	Format string `envconfig:"CATALOG_LOG_FORMAT" default:"json"`
	File   string `envconfig:"CATALOG_LOG_FILE"`
}

type PrefsConfig struct {
	Dir   string `envconfig:"CATALOG_CONFIG_DIR"`
	Scope string `envconfig:"CATALOG_PREFS_SCOPE"`
}

// EventsConfig controls the ui-events.ndjson journal read by cmd/eventsummary.
type EventsConfig struct {
	File     string `envconfig:"CATALOG_EVENTS_FILE"`
	MaxBytes int64  `envconfig:"CATALOG_EVENTS_MAX_BYTES" default:"5242880"`
	Operator string `envconfig:"CATALOG_OPERATOR"`
	Disabled bool   `envconfig:"CATALOG_EVENTS_DISABLED"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CATALOG_API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be positive")
	}
	if c.List.StockConcurrency <= 0 {
		return fmt.Errorf("CATALOG_STOCK_CONCURRENCY must be positive")
	}
	if c.Refresh.BatchSize <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_BATCH_SIZE must be positive")
	}
	return nil
}

func (c *Config) fillDefaults() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.Prefs.Dir == "" {
		c.Prefs.Dir = DefaultDir()
	}
	if c.Prefs.Scope == "" {
		c.Prefs.Scope = c.API.BaseURL
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.Prefs.Dir, "catalog-tui.log")
	}
	if c.Events.File == "" {
		c.Events.File = filepath.Join(c.Prefs.Dir, "ui-events.ndjson")
	}
}

// DefaultDir is the per-user directory for local state.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppDirName)
}
