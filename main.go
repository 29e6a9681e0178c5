package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/config"
	"github.com/remstock/catalog-tui/internal/logger"
	"github.com/remstock/catalog-tui/internal/prefs"
)

func main() {
	theme := flag.String("theme", "", "Markdown rendering theme: auto, light, or dark")
	apiURL := flag.String("api", "", "Backend base URL, overrides CATALOG_API_BASE_URL")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	if *apiURL != "" {
		os.Setenv("CATALOG_API_BASE_URL", *apiURL)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logFile, err := logger.OpenFile(cfg.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logger.New(logger.Options{
		Component: "catalog-tui",
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Output:    logFile,
	})

	store, err := prefs.Open(prefs.DefaultPath(cfg.Prefs.Dir), cfg.Prefs.Scope, log)
	if err != nil {
		// Preferences are optional; the table falls back to defaults.
		log.Error().Err(err).Msg("open preference store")
		store = nil
	}
	defer store.Close()

	client := api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
	)

	ui, uiPath := loadUIConfig(cfg.Prefs.Dir)
	if *theme != "" {
		ui.MarkdownTheme = markdownThemeFromString(*theme).String()
	}
	telemetry := telemetryFromConfig(cfg.Events, log)

	log.Info().Str("api", cfg.API.BaseURL).Str("scope", cfg.Prefs.Scope).Msg("starting")
	m := newModel(deps{
		cfg:       cfg,
		log:       log,
		client:    client,
		prefs:     store,
		ui:        ui,
		uiPath:    uiPath,
		telemetry: telemetry,
	})
	if _, err := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	).Run(); err != nil {
		log.Error().Err(err).Msg("program exited")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
