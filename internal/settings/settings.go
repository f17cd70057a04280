// Package settings persists the small amount of process-wide state that has
// to survive restarts: where memorized words are stored, which sheet the user
// picked and when a word was last drawn.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	keyMemorizedWordsPath = "memorizedWordsPath"
	keyLastLoadedDate     = "lastLoadedDate"
	keySheetID            = "sheetId"
	keyLastWord           = "lastWord"
)

type Settings struct {
	path  string
	v     *viper.Viper
	mutex sync.Mutex
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "vocabbar", "settings.yaml")
}

// Open loads the settings file at path. A missing or unreadable file yields
// empty settings; the file is created on the first write.
func Open(path string) *Settings {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("No settings file yet")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read settings, starting empty")
			v = viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
		}
	}

	return &Settings{path: path, v: v}
}

func (s *Settings) Path() string {
	return s.path
}

func (s *Settings) MemorizedWordsPath() string {
	return s.getString(keyMemorizedWordsPath)
}

func (s *Settings) SetMemorizedWordsPath(path string) error {
	return s.set(keyMemorizedWordsPath, path)
}

// LastLoadedDate reports when a word was last drawn, if ever.
func (s *Settings) LastLoadedDate() (time.Time, bool) {
	raw := s.getString(keyLastLoadedDate)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Err(err).Str("value", raw).Msg("Ignoring malformed lastLoadedDate")
		return time.Time{}, false
	}
	return t, true
}

func (s *Settings) SetLastLoadedDate(t time.Time) error {
	return s.set(keyLastLoadedDate, t.Format(time.RFC3339))
}

// SheetID returns the user override of the bundled sheet id, or "".
func (s *Settings) SheetID() string {
	return s.getString(keySheetID)
}

func (s *Settings) SetSheetID(id string) error {
	return s.set(keySheetID, id)
}

func (s *Settings) LastWord() string {
	return s.getString(keyLastWord)
}

func (s *Settings) SetLastWord(word string) error {
	return s.set(keyLastWord, word)
}

func (s *Settings) getString(key string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.v.GetString(key)
}

func (s *Settings) set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	log.Debug().Str("key", key).Str("path", s.path).Msg("Settings saved")
	return nil
}
