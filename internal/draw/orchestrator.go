// Package draw picks the next word to show: it fetches the sheet, drops
// memorized words and chooses one of the rest at random.
package draw

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"vocabbar/internal/memorized"
	"vocabbar/internal/sheets"

	"github.com/rs/zerolog/log"
)

var ErrNotReady = errors.New("no word is ready to memorize")

type State int

const (
	Loading State = iota
	WordReady
	Exhausted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case WordReady:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Snapshot is the observable state of the orchestrator. Entry is the word on
// display; after a failed draw it still holds the previous word. Err is the
// last recoverable failure, nil when everything went fine.
type Snapshot struct {
	State State
	Entry sheets.WordEntry
	Err   error
}

type WordFetcher interface {
	FetchAll(ctx context.Context) ([]sheets.WordEntry, error)
}

type MemorizationStore interface {
	FilterEligible(all []sheets.WordEntry) []sheets.WordEntry
	MarkMemorized(ctx context.Context, word string) error
}

// DayTracker remembers which word was drawn last and when.
type DayTracker interface {
	LastLoadedDate() (time.Time, bool)
	SetLastLoadedDate(t time.Time) error
	LastWord() string
	SetLastWord(word string) error
}

// SourceNotifier announces that words should now come from another sheet.
type SourceNotifier interface {
	Subscribe(fn func(sheetID string)) func()
}

type Option func(*Orchestrator)

// WithPicker replaces the uniform random choice of an index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(o *Orchestrator) { o.pick = pick }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithTimeout bounds every fetch. Zero means no bound.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = timeout }
}

func WithDayTracker(days DayTracker) Option {
	return func(o *Orchestrator) { o.days = days }
}

type Orchestrator struct {
	fetcher WordFetcher
	store   MemorizationStore
	days    DayTracker
	pick    func(n int) int
	now     func() time.Time
	timeout time.Duration

	mutex      sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	snapshot   Snapshot
	listeners  []func(Snapshot)
}

func New(fetcher WordFetcher, store MemorizationStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:  fetcher,
		store:    store,
		pick:     rand.Intn,
		now:      time.Now,
		snapshot: Snapshot{State: Loading},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ticket identifies one draw. Only the most recently issued ticket may
// complete; older ones are canceled and their results discarded.
type Ticket struct {
	generation uint64
	ctx        context.Context
}

func (t Ticket) Context() context.Context {
	return t.ctx
}

// OnChange registers fn to receive every new snapshot.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.mutex.Lock()
	o.listeners = append(o.listeners, fn)
	o.mutex.Unlock()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.snapshot
}

// Begin enters Loading and supersedes any draw still in flight.
func (o *Orchestrator) Begin(ctx context.Context) Ticket {
	o.mutex.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++

	var cancel context.CancelFunc
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	o.cancel = cancel

	o.snapshot.State = Loading
	o.snapshot.Err = nil
	ticket := Ticket{generation: o.generation, ctx: ctx}
	snapshot := o.snapshot
	o.mutex.Unlock()

	log.Debug().Uint64("generation", ticket.generation).Msg("Draw started")
	o.notify(snapshot)
	return ticket
}

// Fetch runs the remote fetch for t. It may block and may be called from any
// goroutine.
func (o *Orchestrator) Fetch(t Ticket) ([]sheets.WordEntry, error) {
	return o.fetcher.FetchAll(t.ctx)
}

// Complete applies the outcome of t's fetch. It reports false when t was
// superseded, in which case nothing changes.
func (o *Orchestrator) Complete(t Ticket, entries []sheets.WordEntry, err error) bool {
	return o.complete(t, entries, err, "")
}

func (o *Orchestrator) complete(t Ticket, entries []sheets.WordEntry, err error, prefer string) bool {
	o.mutex.Lock()
	if t.generation != o.generation {
		o.mutex.Unlock()
		log.Debug().
			Uint64("generation", t.generation).
			Uint64("current", o.generation).
			Msg("Discarding stale draw")
		return false
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	if err != nil {
		o.snapshot.Err = err
		snapshot := o.snapshot
		o.mutex.Unlock()

		log.Error().Err(err).Msg("Failed to fetch words")
		o.notify(snapshot)
		return true
	}

	eligible := o.store.FilterEligible(entries)
	switch {
	case len(eligible) == 0:
		o.snapshot = Snapshot{State: Exhausted}
	default:
		entry, ok := find(eligible, prefer)
		if !ok {
			entry = eligible[o.pick(len(eligible))]
		}
		o.snapshot = Snapshot{State: WordReady, Entry: entry}
	}
	snapshot := o.snapshot
	o.mutex.Unlock()

	log.Debug().
		Int("rows", len(entries)).
		Int("eligible", len(eligible)).
		Str("state", snapshot.State.String()).
		Str("word", snapshot.Entry.Word).
		Msg("Draw completed")

	if snapshot.State == WordReady {
		o.remember(snapshot.Entry.Word)
	}
	o.notify(snapshot)
	return true
}

// Draw performs a whole draw in the calling goroutine.
func (o *Orchestrator) Draw(ctx context.Context) Snapshot {
	t := o.Begin(ctx)
	entries, err := o.Fetch(t)
	o.Complete(t, entries, err)
	return o.Snapshot()
}

// Request starts a draw in the background; the result reaches OnChange
// listeners.
func (o *Orchestrator) Request(ctx context.Context) {
	t := o.Begin(ctx)
	go func() {
		entries, err := o.Fetch(t)
		o.Complete(t, entries, err)
	}()
}

// Start draws the first word of a session. On the first start of a calendar
// day a fresh word is drawn; later the same day the last word is shown again
// while it is still eligible. The flag reports whether this was a new day.
func (o *Orchestrator) Start(ctx context.Context) (Snapshot, bool) {
	prefer := ""
	newDay := true
	if o.days != nil {
		if last, ok := o.days.LastLoadedDate(); ok && sameDay(last, o.now()) {
			newDay = false
			prefer = o.days.LastWord()
		}
	}

	log.Debug().Bool("new_day", newDay).Str("last_word", prefer).Msg("Starting session")
	t := o.Begin(ctx)
	entries, err := o.Fetch(t)
	o.complete(t, entries, err, prefer)
	return o.Snapshot(), newDay
}

// MarkCurrent memorizes the word on display. It fails with ErrNotReady
// unless a word is ready.
func (o *Orchestrator) MarkCurrent(ctx context.Context) (string, error) {
	current := o.Snapshot()
	if current.State != WordReady {
		return "", ErrNotReady
	}
	return current.Entry.Word, o.store.MarkMemorized(ctx, current.Entry.Word)
}

// Memorize marks the current word and draws the next one. When the word was
// not recorded at all the current word stays on display. A failed save still
// moves on because the word is memorized in memory.
func (o *Orchestrator) Memorize(ctx context.Context) (Snapshot, error) {
	_, err := o.MarkCurrent(ctx)
	if err != nil && !errors.Is(err, memorized.ErrPersistFailed) {
		if !errors.Is(err, ErrNotReady) {
			o.setErr(err)
		}
		return o.Snapshot(), err
	}

	o.Draw(ctx)
	if err != nil {
		o.setErr(err)
	}
	return o.Snapshot(), err
}

// Follow redraws from the new sheet whenever src announces a change.
func (o *Orchestrator) Follow(ctx context.Context, src SourceNotifier) func() {
	return src.Subscribe(func(sheetID string) {
		log.Info().Str("sheet_id", sheetID).Msg("Data source changed, drawing again")
		o.Request(ctx)
	})
}

// setErr records err without disturbing a newer failure.
func (o *Orchestrator) setErr(err error) {
	o.mutex.Lock()
	if o.snapshot.Err != nil {
		o.mutex.Unlock()
		return
	}
	o.snapshot.Err = err
	snapshot := o.snapshot
	o.mutex.Unlock()
	o.notify(snapshot)
}

func (o *Orchestrator) remember(word string) {
	if o.days == nil {
		return
	}
	if err := o.days.SetLastWord(word); err != nil {
		log.Warn().Err(err).Msg("Failed to remember last word")
	}
	if err := o.days.SetLastLoadedDate(o.now()); err != nil {
		log.Warn().Err(err).Msg("Failed to remember last loaded date")
	}
}

func (o *Orchestrator) notify(snapshot Snapshot) {
	o.mutex.Lock()
	listeners := append([]func(Snapshot){}, o.listeners...)
	o.mutex.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func find(entries []sheets.WordEntry, word string) (sheets.WordEntry, bool) {
	if word == "" {
		return sheets.WordEntry{}, false
	}
	for _, entry := range entries {
		if entry.Word == word {
			return entry, true
		}
	}
	return sheets.WordEntry{}, false
}

func sameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
