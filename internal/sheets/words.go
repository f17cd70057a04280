package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	HeaderWord    = "Word"
	HeaderMeaning = "Meaning"
	HeaderExample = "Example"
)

var (
	ErrFetchFailed  = errors.New("fetch failed")
	ErrDecodeFailed = errors.New("decode failed")
)

// WordEntry is one vocabulary row of the sheet.
type WordEntry struct {
	Word    string
	Meaning string
	Example string
}

type ErrorKind int

const (
	KindFetch ErrorKind = iota
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError is returned by FetchWords when the sheet could not be read or
// its body could not be understood.
type FetchError struct {
	Kind    ErrorKind
	SheetID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("sheet %s: %s failed: %v", e.SheetID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrFetchFailed:
		return e.Kind == KindFetch
	case ErrDecodeFailed:
		return e.Kind == KindDecode
	}
	return false
}

// FetchWords reads every row of the sheet and returns the word entries below
// the header row. An empty result is not an error.
func FetchWords(ctx context.Context, reader RowReader, sheetID, range_ string) ([]WordEntry, error) {
	if sheetID == "" {
		return nil, &FetchError{Kind: KindFetch, SheetID: sheetID, Err: errors.New("sheet id is required")}
	}

	log.Debug().Str("sheet_id", sheetID).Str("range", range_).Msg("Fetching word rows")
	values, err := reader.ReadSheet(ctx, sheetID, range_)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), SheetID: sheetID, Err: err}
	}

	entries := ParseWordRows(values)
	log.Debug().
		Str("sheet_id", sheetID).
		Int("rows", len(values)).
		Int("entries", len(entries)).
		Msg("Fetched word rows")
	return entries, nil
}

// classify tells a malformed response body apart from a transport or HTTP failure.
func classify(err error) ErrorKind {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindDecode
	}
	return KindFetch
}

// ParseWordRows drops the header row and converts the remaining rows to
// entries. Columns are located through the header when it names all three of
// Word, Meaning and Example; otherwise the positional order word, meaning,
// example applies. Rows without a word are skipped.
func ParseWordRows(values [][]interface{}) []WordEntry {
	entries := []WordEntry{}
	if len(values) == 0 {
		return entries
	}

	columns := columnsFromHeader(values[0])
	for i, row := range values[1:] {
		entry := WordEntry{
			Word:    strings.TrimSpace(extractStringField(row, columns.word)),
			Meaning: extractStringField(row, columns.meaning),
			Example: extractStringField(row, columns.example),
		}
		if entry.Word == "" {
			log.Debug().Int("row", i+2).Msg("Skipping row without a word")
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

type columnIndex struct {
	word, meaning, example int
}

var positionalColumns = columnIndex{word: 0, meaning: 1, example: 2}

func columnsFromHeader(header []interface{}) columnIndex {
	found := map[string]int{}
	for i, cell := range header {
		name := fmt.Sprintf("%v", cell)
		if _, seen := found[name]; !seen {
			found[name] = i
		}
	}

	word, okWord := found[HeaderWord]
	meaning, okMeaning := found[HeaderMeaning]
	example, okExample := found[HeaderExample]
	if okWord && okMeaning && okExample {
		return columnIndex{word: word, meaning: meaning, example: example}
	}
	return positionalColumns
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}

// Fetcher reads the word list from whichever sheet source currently selects.
type Fetcher struct {
	reader RowReader
	source *Source
	range_ string
}

func NewFetcher(reader RowReader, source *Source, range_ string) *Fetcher {
	return &Fetcher{reader: reader, source: source, range_: range_}
}

func (f *Fetcher) FetchAll(ctx context.Context) ([]WordEntry, error) {
	return FetchWords(ctx, f.reader, f.source.SheetID(), f.range_)
}
