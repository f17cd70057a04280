package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrMissing is returned when a required key is absent from the bundled configuration.
var ErrMissing = errors.New("required configuration missing")

const (
	DefaultSheetRange   = "Sheet1"
	DefaultFetchTimeout = 15 * time.Second
	DefaultNtfyURL      = "https://ntfy.sh"
	DefaultNtfyTopic    = "vocabbar"
)

// Config is the bundled, read-once configuration of the application.
type Config struct {
	APIKey       string
	SheetID      string
	SheetRange   string
	FetchTimeout time.Duration
	Ntfy         NtfyConfig
}

type NtfyConfig struct {
	Enabled  bool
	URL      string
	Topic    string
	Priority string
}

// Load reads the dotenv-formatted configuration file at path.
func Load(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", ErrMissing, path, err)
	}
	return FromMap(values)
}

// FromMap builds a Config from already parsed key/value pairs.
func FromMap(values map[string]string) (*Config, error) {
	cfg := &Config{
		APIKey:       values["API_KEY"],
		SheetID:      values["SHEET_ID"],
		SheetRange:   valueWithDefault(values, "SHEET_RANGE", DefaultSheetRange),
		FetchTimeout: DefaultFetchTimeout,
		Ntfy: NtfyConfig{
			URL:      valueWithDefault(values, "NTFY_URL", DefaultNtfyURL),
			Topic:    valueWithDefault(values, "NTFY_TOPIC", DefaultNtfyTopic),
			Priority: values["NTFY_PRIORITY"],
		},
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API_KEY", ErrMissing)
	}
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("%w: SHEET_ID", ErrMissing)
	}

	if raw := values["FETCH_TIMEOUT"]; raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			log.Warn().Str("value", raw).Msg("Invalid FETCH_TIMEOUT, using default")
		} else {
			cfg.FetchTimeout = timeout
		}
	}

	if raw := values["NTFY_ENABLED"]; raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			log.Warn().Str("value", raw).Msg("Invalid NTFY_ENABLED, notifications disabled")
		}
		cfg.Ntfy.Enabled = enabled
	}

	return cfg, nil
}

func valueWithDefault(values map[string]string, key, defaultValue string) string {
	if value := values[key]; value != "" {
		return value
	}
	return defaultValue
}
