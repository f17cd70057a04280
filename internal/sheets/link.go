package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidLink   = errors.New("invalid Google Sheet link")
	ErrInvalidHeader = errors.New("sheet must contain Word, Meaning and Example columns")
)

var sheetLinkPattern = regexp.MustCompile(`https://docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ExtractSheetID pulls the spreadsheet id out of a sharing link such as
// https://docs.google.com/spreadsheets/d/<ID>/edit.
func ExtractSheetID(link string) (string, error) {
	match := sheetLinkPattern.FindStringSubmatch(link)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	return match[1], nil
}

// TemplateURL is the "make a copy" link for the sheet with the given id.
func TemplateURL(sheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/copy", sheetID)
}

// SearchURL is a web search link for a word.
func SearchURL(word string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(word)
}

// ValidateHeader checks that the header row names all three columns.
// Matching is case-sensitive and order does not matter.
func ValidateHeader(header []interface{}) error {
	names := make(map[string]bool, len(header))
	for _, cell := range header {
		names[fmt.Sprintf("%v", cell)] = true
	}

	for _, required := range []string{HeaderWord, HeaderMeaning, HeaderExample} {
		if !names[required] {
			return fmt.Errorf("%w: missing %q", ErrInvalidHeader, required)
		}
	}
	return nil
}

// ValidateSheet fetches the sheet and checks its header row.
func ValidateSheet(ctx context.Context, reader RowReader, sheetID, range_ string) error {
	values, err := reader.ReadSheet(ctx, sheetID, range_)
	if err != nil {
		return &FetchError{Kind: classify(err), SheetID: sheetID, Err: err}
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: sheet is empty", ErrInvalidHeader)
	}
	if err := ValidateHeader(values[0]); err != nil {
		return err
	}

	log.Debug().Str("sheet_id", sheetID).Msg("Sheet header validated")
	return nil
}
