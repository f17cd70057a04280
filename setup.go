package main

import (
	"context"
	"errors"
	"path/filepath"

	"vocabbar/internal/app"
	"vocabbar/internal/config"
	"vocabbar/internal/memorized"
	"vocabbar/internal/settings"

	"github.com/rs/zerolog/log"
)

const defaultConfigFile = "config.env"

type globalFlags struct {
	configPath   string
	settingsPath string
}

func defaultFlags() *globalFlags {
	return &globalFlags{
		configPath:   app.GetEnvWithDefault("VOCABBAR_CONFIG", defaultConfigFile),
		settingsPath: app.GetEnvWithDefault("VOCABBAR_SETTINGS", settings.DefaultPath()),
	}
}

// logFilePath is where the card view writes its logs.
func (f *globalFlags) logFilePath() string {
	return app.GetEnvWithDefault("LOGFILE", filepath.Join(filepath.Dir(f.settingsPath), "vocabbar.log"))
}

// initializeApp builds the application or exits when required configuration
// is missing.
func initializeApp(ctx context.Context, flags *globalFlags, prompter memorized.Prompter) *app.App {
	a, err := app.Initialize(ctx, app.Options{
		ConfigPath:   flags.configPath,
		SettingsPath: flags.settingsPath,
		Prompter:     prompter,
	})
	if errors.Is(err, config.ErrMissing) {
		log.Fatal().Err(err).Str("config", flags.configPath).Msg("API_KEY and SHEET_ID are required")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	return a
}
