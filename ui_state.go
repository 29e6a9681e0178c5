package main

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// uiConfig holds terminal-only settings. Column layout and the navigation
// theme live in the preference store so they follow the backend scope.
type uiConfig struct {
	MarkdownTheme string  `yaml:"markdown_theme,omitempty"`
	PageSize      int     `yaml:"page_size,omitempty"`
	MainTabType   string  `yaml:"main_tab_type,omitempty"`
	ShowPreview   *bool   `yaml:"show_preview,omitempty"`
	ShowLogs      *bool   `yaml:"show_logs,omitempty"`
	Pinned        []int64 `yaml:"pinned,omitempty"`
}

func loadUIConfig(configDir string) (*uiConfig, string) {
	path := filepath.Join(configDir, "ui.yaml")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return &uiConfig{}, path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &uiConfig{}, path
	}
	var cfg uiConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &uiConfig{}, path
	}
	cfg.MainTabType = strings.ToLower(strings.TrimSpace(cfg.MainTabType))
	if cfg.PageSize < 0 {
		cfg.PageSize = 0
	}
	return &cfg, path
}

func saveUIConfig(cfg *uiConfig, path string) error {
	if cfg == nil {
		cfg = &uiConfig{}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *uiConfig) isPinned(tabID int64) bool {
	for _, id := range c.Pinned {
		if id == tabID {
			return true
		}
	}
	return false
}

// togglePin pins or unpins a tab and reports the new state.
func (c *uiConfig) togglePin(tabID int64) bool {
	for i, id := range c.Pinned {
		if id == tabID {
			c.Pinned = append(c.Pinned[:i], c.Pinned[i+1:]...)
			return false
		}
	}
	c.Pinned = append(c.Pinned, tabID)
	return true
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
