package draw

import (
	"context"
	"errors"

	"vocabbar/internal/memorized"
	"vocabbar/internal/sheets"
)

const (
	ExhaustedTitle  = "No more words!"
	ExhaustedDetail = "All words are marked as memorized."
	LoadingTitle    = "Loading..."
)

// Status is a short user-facing description of the snapshot's last failure,
// or "" when there is nothing to report.
func (s Snapshot) Status() string {
	return StatusMessage(s.Err)
}

func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, sheets.ErrDecodeFailed):
		return "The word sheet sent data that could not be read."
	case errors.Is(err, context.DeadlineExceeded):
		return "The word sheet took too long to answer."
	case errors.Is(err, sheets.ErrFetchFailed):
		return "Could not reach the word sheet."
	case errors.Is(err, memorized.ErrStorageUnselected):
		return "No storage location chosen, the word was not recorded."
	case errors.Is(err, memorized.ErrPersistFailed):
		return "Memorized words could not be saved; they are kept until the next successful save."
	case errors.Is(err, ErrNotReady):
		return "There is no word to memorize yet."
	default:
		return "Something went wrong: " + err.Error()
	}
}
