package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "API_KEY=key-123\nSHEET_ID=sheet-abc\nFETCH_TIMEOUT=3s\nNTFY_ENABLED=true\nNTFY_TOPIC=words\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.APIKey)
	assert.Equal(t, "sheet-abc", cfg.SheetID)
	assert.Equal(t, DefaultSheetRange, cfg.SheetRange)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.Ntfy.Enabled)
	assert.Equal(t, "words", cfg.Ntfy.Topic)
	assert.Equal(t, DefaultNtfyURL, cfg.Ntfy.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestFromMapRequiredKeys(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{
			name:   "missing api key",
			values: map[string]string{"SHEET_ID": "abc"},
			want:   "API_KEY",
		},
		{
			name:   "missing sheet id",
			values: map[string]string{"API_KEY": "key"},
			want:   "SHEET_ID",
		},
		{
			name:   "empty values",
			values: map[string]string{"API_KEY": "", "SHEET_ID": ""},
			want:   "API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromMap(tt.values)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissing)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromMapInvalidOptionalValues(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"API_KEY":       "key",
		"SHEET_ID":      "abc",
		"FETCH_TIMEOUT": "soon",
		"NTFY_ENABLED":  "maybe",
		"SHEET_RANGE":   "Words",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.False(t, cfg.Ntfy.Enabled)
	assert.Equal(t, "Words", cfg.SheetRange)
}
