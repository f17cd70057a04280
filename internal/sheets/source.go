package sheets

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// OverrideStore persists the user's choice of sheet.
type OverrideStore interface {
	SheetID() string
	SetSheetID(id string) error
}

// Source tracks which spreadsheet words are drawn from and tells subscribers
// when that changes.
type Source struct {
	defaultID string
	store     OverrideStore

	mutex     sync.Mutex
	nextID    int
	observers map[int]func(sheetID string)
}

func NewSource(defaultID string, store OverrideStore) *Source {
	return &Source{
		defaultID: defaultID,
		store:     store,
		observers: make(map[int]func(string)),
	}
}

// SheetID returns the user override when set, otherwise the bundled default.
func (s *Source) SheetID() string {
	if id := s.store.SheetID(); id != "" {
		return id
	}
	return s.defaultID
}

func (s *Source) DefaultID() string {
	return s.defaultID
}

func (s *Source) Overridden() bool {
	return s.store.SheetID() != ""
}

// Subscribe registers fn to be called with the new sheet id after every
// change. The returned function removes the subscription.
func (s *Source) Subscribe(fn func(sheetID string)) func() {
	s.mutex.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mutex.Unlock()

	return func() {
		s.mutex.Lock()
		delete(s.observers, id)
		s.mutex.Unlock()
	}
}

// Configure extracts the sheet id from link, validates the sheet through
// reader and commits it as the new source. Nothing changes on failure.
func (s *Source) Configure(ctx context.Context, reader RowReader, range_, link string) (string, error) {
	sheetID, err := ExtractSheetID(link)
	if err != nil {
		return "", err
	}
	if err := ValidateSheet(ctx, reader, sheetID, range_); err != nil {
		log.Warn().Err(err).Str("sheet_id", sheetID).Msg("Rejected sheet override")
		return "", err
	}
	if err := s.SetOverride(sheetID); err != nil {
		return "", err
	}
	return sheetID, nil
}

func (s *Source) SetOverride(sheetID string) error {
	if err := s.store.SetSheetID(sheetID); err != nil {
		return err
	}
	log.Info().Str("override", sheetID).Str("sheet_id", s.SheetID()).Msg("Sheet source updated")
	s.publish()
	return nil
}

// ClearOverride falls back to the bundled sheet id.
func (s *Source) ClearOverride() error {
	return s.SetOverride("")
}

func (s *Source) publish() {
	sheetID := s.SheetID()

	s.mutex.Lock()
	observers := make([]func(string), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mutex.Unlock()

	log.Debug().Str("sheet_id", sheetID).Int("subscribers", len(observers)).Msg("Data source changed")
	for _, fn := range observers {
		fn(sheetID)
	}
}
