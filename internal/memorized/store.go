// Package memorized keeps the set of words the user has memorized and
// persists it as a JSON array of strings.
package memorized

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vocabbar/internal/sheets"

	"github.com/rs/zerolog/log"
)

const DefaultFileName = "memorized_words.json"

var (
	ErrStorageUnselected = errors.New("storage location not selected")
	ErrPersistFailed     = errors.New("failed to persist memorized words")
)

// Prompter asks the user where memorized words should be stored. ok is false
// when the user cancels.
type Prompter interface {
	PromptLocation(ctx context.Context, suggested string) (path string, ok bool, err error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, suggested string) (string, bool, error)

func (f PrompterFunc) PromptLocation(ctx context.Context, suggested string) (string, bool, error) {
	return f(ctx, suggested)
}

// LocationStore remembers the chosen storage location across restarts.
type LocationStore interface {
	MemorizedWordsPath() string
	SetMemorizedWordsPath(path string) error
}

type Store struct {
	locations LocationStore
	prompter  Prompter
	suggested string

	// resolveMutex serializes prompting so the user is asked at most once.
	resolveMutex sync.Mutex

	mutex sync.RWMutex
	words []string
	index map[string]struct{}
}

func NewStore(locations LocationStore, prompter Prompter, suggested string) *Store {
	return &Store{
		locations: locations,
		prompter:  prompter,
		suggested: suggested,
		words:     []string{},
		index:     make(map[string]struct{}),
	}
}

// DefaultSuggestedPath is offered to the user when no location was chosen yet.
func DefaultSuggestedPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, "Documents", DefaultFileName)
}

// Load replaces the in-memory set with the contents of the configured file.
// A missing location, missing file or corrupt file all yield an empty set.
func (s *Store) Load() []string {
	words := s.readFile(s.locations.MemorizedWordsPath())

	s.mutex.Lock()
	s.words = []string{}
	s.index = make(map[string]struct{}, len(words))
	for _, word := range words {
		s.insertLocked(word)
	}
	s.mutex.Unlock()

	return s.Words()
}

func (s *Store) readFile(path string) []string {
	if path == "" {
		log.Debug().Msg("No memorized words location configured, starting fresh")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", path).Msg("No memorized words file found, starting fresh")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read memorized words, starting fresh")
		}
		return nil
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Memorized words file is corrupt, starting fresh")
		return nil
	}

	log.Debug().Str("path", path).Int("words", len(words)).Msg("Loaded memorized words")
	return words
}

// Words returns the memorized words in insertion order.
func (s *Store) Words() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	words := make([]string, len(s.words))
	copy(words, s.words)
	return words
}

func (s *Store) Contains(word string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.index[word]
	return ok
}

func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.words)
}

// MarkMemorized records word and rewrites the storage file. Empty and already
// memorized words are ignored. When no location has been chosen the user is
// prompted; if they cancel, ErrStorageUnselected is returned and nothing
// changes. A failed write keeps the word in memory and returns an error
// wrapping ErrPersistFailed.
func (s *Store) MarkMemorized(ctx context.Context, word string) error {
	if word == "" || s.Contains(word) {
		return nil
	}

	path, err := s.ResolveStorageLocation(ctx)
	if err != nil {
		log.Info().Err(err).Str("word", word).Msg("Memorize abandoned")
		return err
	}

	s.mutex.Lock()
	if !s.insertLocked(word) {
		s.mutex.Unlock()
		return nil
	}
	snapshot := make([]string, len(s.words))
	copy(snapshot, s.words)
	s.mutex.Unlock()

	if err := writeFile(path, snapshot); err != nil {
		log.Error().Err(err).Str("path", path).Str("word", word).Msg("Failed to save memorized words")
		return err
	}

	log.Info().Str("word", word).Int("memorized", len(snapshot)).Msg("Word memorized")
	return nil
}

// ResolveStorageLocation returns the configured storage path, prompting for
// and persisting one if none was ever chosen.
func (s *Store) ResolveStorageLocation(ctx context.Context) (string, error) {
	s.resolveMutex.Lock()
	defer s.resolveMutex.Unlock()

	if path := s.locations.MemorizedWordsPath(); path != "" {
		return path, nil
	}
	return s.promptLocked(ctx)
}

// ResetStorageLocation prompts for a new location even if one is configured
// and writes the current set there. On cancel the old location stays.
func (s *Store) ResetStorageLocation(ctx context.Context) (string, error) {
	s.resolveMutex.Lock()
	defer s.resolveMutex.Unlock()

	path, err := s.promptLocked(ctx)
	if err != nil {
		return "", err
	}

	if err := writeFile(path, s.Words()); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to save memorized words to new location")
		return path, err
	}

	log.Info().Str("path", path).Msg("Storage location reset")
	return path, nil
}

func (s *Store) promptLocked(ctx context.Context) (string, error) {
	suggested := s.suggested
	if current := s.locations.MemorizedWordsPath(); current != "" {
		suggested = current
	}

	path, ok, err := s.prompter.PromptLocation(ctx, suggested)
	if err != nil {
		return "", fmt.Errorf("failed to prompt for storage location: %w", err)
	}
	if !ok || path == "" {
		log.Info().Msg("User canceled the save location selection")
		return "", ErrStorageUnselected
	}

	if err := s.locations.SetMemorizedWordsPath(path); err != nil {
		return "", fmt.Errorf("failed to remember storage location: %w", err)
	}

	log.Debug().Str("path", path).Msg("Storage location chosen")
	return path, nil
}

// FilterEligible returns the entries whose word is not memorized, keeping
// their relative order.
func (s *Store) FilterEligible(all []sheets.WordEntry) []sheets.WordEntry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	eligible := make([]sheets.WordEntry, 0, len(all))
	for _, entry := range all {
		if _, memorized := s.index[entry.Word]; memorized {
			continue
		}
		eligible = append(eligible, entry)
	}
	return eligible
}

func (s *Store) insertLocked(word string) bool {
	if word == "" {
		return false
	}
	if _, ok := s.index[word]; ok {
		return false
	}
	s.index[word] = struct{}{}
	s.words = append(s.words, word)
	return true
}

func writeFile(path string, words []string) error {
	if words == nil {
		words = []string{}
	}

	data, err := json.MarshalIndent(words, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}
