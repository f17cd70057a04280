package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vocabbar/internal/config"
	"vocabbar/internal/draw"
	"vocabbar/internal/memorized"
	"vocabbar/internal/notifications"
	"vocabbar/internal/settings"
	"vocabbar/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// RedirectLogs sends log output to a file so an interactive view keeps the
// terminal to itself. The caller closes the returned file.
func RedirectLogs(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if os.Getenv("ENV") == "production" {
		log.Logger = log.Output(f)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339})
	}
	return f, nil
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

type Options struct {
	ConfigPath   string
	SettingsPath string
	Prompter     memorized.Prompter
}

// App holds the wired components of the application.
type App struct {
	Config       *config.Config
	Settings     *settings.Settings
	Reader       sheets.RowReader
	Source       *sheets.Source
	Store        *memorized.Store
	Orchestrator *draw.Orchestrator
	Notifier     *notifications.Client
}

// Initialize loads configuration and settings and builds every component.
// A missing API_KEY or SHEET_ID is reported as config.ErrMissing.
func Initialize(ctx context.Context, opts Options) (*App, error) {
	log.Debug().Str("config", opts.ConfigPath).Str("settings", opts.SettingsPath).Msg("Initializing application")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, settings.Open(opts.SettingsPath), sheetsClient, opts.Prompter), nil
}

// Assemble wires already constructed dependencies together.
func Assemble(cfg *config.Config, s *settings.Settings, reader sheets.RowReader, prompter memorized.Prompter) *App {
	source := sheets.NewSource(cfg.SheetID, s)
	store := memorized.NewStore(s, prompter, memorized.DefaultSuggestedPath())
	store.Load()

	orchestrator := draw.New(
		sheets.NewFetcher(reader, source, cfg.SheetRange),
		store,
		draw.WithDayTracker(s),
		draw.WithTimeout(cfg.FetchTimeout),
	)

	notifier := notifications.NewClient(cfg.Ntfy.URL, cfg.Ntfy.Topic, cfg.Ntfy.Enabled, cfg.Ntfy.Priority)
	if notifier.Enabled() {
		log.Info().Str("topic", cfg.Ntfy.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	log.Debug().Str("sheet_id", source.SheetID()).Msg("Application initialized")
	return &App{
		Config:       cfg,
		Settings:     s,
		Reader:       reader,
		Source:       source,
		Store:        store,
		Orchestrator: orchestrator,
		Notifier:     notifier,
	}
}

// ConfigureSheet switches to the sheet behind link after validating it.
func (a *App) ConfigureSheet(ctx context.Context, link string) (string, error) {
	return a.Source.Configure(ctx, a.Reader, a.Config.SheetRange, link)
}
