package draw

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vocabbar/internal/memorized"
	"vocabbar/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioRows = []sheets.WordEntry{
	{Word: "ubiquitous", Meaning: "everywhere", Example: "..."},
	{Word: "laconic", Meaning: "terse", Example: "..."},
}

type fetchFunc func(ctx context.Context) ([]sheets.WordEntry, error)

func (f fetchFunc) FetchAll(ctx context.Context) ([]sheets.WordEntry, error) {
	return f(ctx)
}

func staticFetcher(entries []sheets.WordEntry, err error) fetchFunc {
	return func(ctx context.Context) ([]sheets.WordEntry, error) {
		return entries, err
	}
}

type memoryStore struct {
	mutex   sync.Mutex
	words   map[string]bool
	markErr error
	marked  []string
}

func newMemoryStore(words ...string) *memoryStore {
	s := &memoryStore{words: map[string]bool{}}
	for _, w := range words {
		s.words[w] = true
	}
	return s
}

func (s *memoryStore) FilterEligible(all []sheets.WordEntry) []sheets.WordEntry {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := []sheets.WordEntry{}
	for _, e := range all {
		if !s.words[e.Word] {
			out = append(out, e)
		}
	}
	return out
}

func (s *memoryStore) MarkMemorized(ctx context.Context, word string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.marked = append(s.marked, word)
	if s.markErr != nil && !errors.Is(s.markErr, memorized.ErrPersistFailed) {
		return s.markErr
	}
	s.words[word] = true
	return s.markErr
}

type memoryDays struct {
	last     time.Time
	hasLast  bool
	lastWord string
}

func (d *memoryDays) LastLoadedDate() (time.Time, bool) { return d.last, d.hasLast }

func (d *memoryDays) SetLastLoadedDate(t time.Time) error {
	d.last, d.hasLast = t, true
	return nil
}

func (d *memoryDays) LastWord() string { return d.lastWord }

func (d *memoryDays) SetLastWord(word string) error {
	d.lastWord = word
	return nil
}

func first(n int) int { return 0 }
func last(n int) int  { return n - 1 }

func TestInitialStateIsLoading(t *testing.T) {
	o := New(staticFetcher(nil, nil), newMemoryStore())
	assert.Equal(t, Loading, o.Snapshot().State)
}

func TestDrawScenario(t *testing.T) {
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore())

	for i := 0; i < 20; i++ {
		snapshot := o.Draw(context.Background())
		require.Equal(t, WordReady, snapshot.State)
		assert.Contains(t, []string{"ubiquitous", "laconic"}, snapshot.Entry.Word)
		assert.NoError(t, snapshot.Err)
	}
}

func TestDrawUsesPicker(t *testing.T) {
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore(), WithPicker(last))
	assert.Equal(t, "laconic", o.Draw(context.Background()).Entry.Word)

	o = New(staticFetcher(scenarioRows, nil), newMemoryStore(), WithPicker(first))
	assert.Equal(t, "ubiquitous", o.Draw(context.Background()).Entry.Word)
}

func TestDrawNeverPicksMemorized(t *testing.T) {
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore("ubiquitous"))

	for i := 0; i < 20; i++ {
		assert.Equal(t, "laconic", o.Draw(context.Background()).Entry.Word)
	}
}

func TestDrawExhausted(t *testing.T) {
	tests := []struct {
		name      string
		rows      []sheets.WordEntry
		memorized []string
	}{
		{name: "all memorized", rows: scenarioRows, memorized: []string{"ubiquitous", "laconic"}},
		{name: "no rows", rows: []sheets.WordEntry{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picked := false
			o := New(staticFetcher(tt.rows, nil), newMemoryStore(tt.memorized...),
				WithPicker(func(n int) int { picked = true; return 0 }))

			snapshot := o.Draw(context.Background())
			assert.Equal(t, Exhausted, snapshot.State)
			assert.Equal(t, sheets.WordEntry{}, snapshot.Entry)
			assert.NoError(t, snapshot.Err)
			assert.False(t, picked)
		})
	}
}

func TestDrawFailureKeepsPreviousWord(t *testing.T) {
	var fail atomic.Bool
	fetcher := fetchFunc(func(ctx context.Context) ([]sheets.WordEntry, error) {
		if fail.Load() {
			return nil, &sheets.FetchError{Kind: sheets.KindFetch, SheetID: "s", Err: errors.New("connection reset")}
		}
		return scenarioRows, nil
	})
	store := newMemoryStore()
	o := New(fetcher, store, WithPicker(first))

	before := o.Draw(context.Background())
	require.Equal(t, WordReady, before.State)

	fail.Store(true)
	after := o.Draw(context.Background())

	assert.Equal(t, Loading, after.State)
	assert.Equal(t, before.Entry, after.Entry)
	assert.ErrorIs(t, after.Err, sheets.ErrFetchFailed)
	assert.NotEmpty(t, after.Status())
	assert.Empty(t, store.marked)
}

func TestStaleCompletionDiscarded(t *testing.T) {
	o := New(staticFetcher(nil, nil), newMemoryStore(), WithPicker(first))

	older := o.Begin(context.Background())
	newer := o.Begin(context.Background())
	assert.ErrorIs(t, older.Context().Err(), context.Canceled)

	assert.True(t, o.Complete(newer, []sheets.WordEntry{{Word: "newer"}}, nil))
	assert.False(t, o.Complete(older, []sheets.WordEntry{{Word: "older"}}, nil))

	snapshot := o.Snapshot()
	assert.Equal(t, WordReady, snapshot.State)
	assert.Equal(t, "newer", snapshot.Entry.Word)
}

func TestStaleFailureDiscarded(t *testing.T) {
	o := New(staticFetcher(nil, nil), newMemoryStore(), WithPicker(first))

	older := o.Begin(context.Background())
	newer := o.Begin(context.Background())
	assert.True(t, o.Complete(newer, []sheets.WordEntry{{Word: "newer"}}, nil))
	assert.False(t, o.Complete(older, nil, older.Context().Err()))

	assert.NoError(t, o.Snapshot().Err)
}

func TestRequestSupersedesInFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	fetcher := fetchFunc(func(ctx context.Context) ([]sheets.WordEntry, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return []sheets.WordEntry{{Word: "stale"}}, nil
		}
		return []sheets.WordEntry{{Word: "fresh"}}, nil
	})

	o := New(fetcher, newMemoryStore(), WithPicker(first))
	ready := make(chan Snapshot, 10)
	o.OnChange(func(s Snapshot) {
		if s.State == WordReady {
			ready <- s
		}
	})

	o.Request(context.Background())
	<-started
	o.Request(context.Background())

	select {
	case s := <-ready:
		assert.Equal(t, "fresh", s.Entry.Word)
	case <-time.After(2 * time.Second):
		t.Fatal("no word drawn")
	}

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "fresh", o.Snapshot().Entry.Word)
	assert.Len(t, ready, 0)
}

func TestTimeoutBoundsFetch(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context) ([]sheets.WordEntry, error) {
		<-ctx.Done()
		return nil, &sheets.FetchError{Kind: sheets.KindFetch, SheetID: "s", Err: ctx.Err()}
	})
	o := New(fetcher, newMemoryStore(), WithTimeout(20*time.Millisecond))

	snapshot := o.Draw(context.Background())
	assert.Equal(t, Loading, snapshot.State)
	assert.ErrorIs(t, snapshot.Err, context.DeadlineExceeded)
}

func TestMemorizeDrawsNext(t *testing.T) {
	store := newMemoryStore()
	o := New(staticFetcher(scenarioRows, nil), store, WithPicker(first))

	require.Equal(t, "ubiquitous", o.Draw(context.Background()).Entry.Word)

	snapshot, err := o.Memorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ubiquitous"}, store.marked)
	assert.Equal(t, WordReady, snapshot.State)
	assert.Equal(t, "laconic", snapshot.Entry.Word)

	snapshot, err = o.Memorize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Exhausted, snapshot.State)
}

func TestMemorizeRequiresWordReady(t *testing.T) {
	store := newMemoryStore("ubiquitous", "laconic")
	o := New(staticFetcher(scenarioRows, nil), store)

	_, err := o.Memorize(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	require.Equal(t, Exhausted, o.Draw(context.Background()).State)
	_, err = o.Memorize(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, store.marked)
}

func TestMemorizeStorageUnselected(t *testing.T) {
	var fetches atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context) ([]sheets.WordEntry, error) {
		fetches.Add(1)
		return scenarioRows, nil
	})
	store := newMemoryStore()
	store.markErr = memorized.ErrStorageUnselected
	o := New(fetcher, store, WithPicker(first))
	before := o.Draw(context.Background())

	snapshot, err := o.Memorize(context.Background())
	assert.ErrorIs(t, err, memorized.ErrStorageUnselected)
	assert.Equal(t, WordReady, snapshot.State)
	assert.Equal(t, before.Entry, snapshot.Entry)
	assert.ErrorIs(t, snapshot.Err, memorized.ErrStorageUnselected)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Len(t, store.FilterEligible(scenarioRows), 2)
}

func TestMemorizePersistFailureMovesOn(t *testing.T) {
	store := newMemoryStore()
	store.markErr = fmt.Errorf("%w: disk full", memorized.ErrPersistFailed)
	o := New(staticFetcher(scenarioRows, nil), store, WithPicker(first))
	o.Draw(context.Background())

	snapshot, err := o.Memorize(context.Background())
	assert.ErrorIs(t, err, memorized.ErrPersistFailed)
	assert.Equal(t, WordReady, snapshot.State)
	assert.Equal(t, "laconic", snapshot.Entry.Word)
	assert.ErrorIs(t, snapshot.Err, memorized.ErrPersistFailed)
	assert.Contains(t, snapshot.Status(), "could not be saved")
}

func TestStartNewDayDrawsFresh(t *testing.T) {
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local)
	days := &memoryDays{last: now.AddDate(0, 0, -1), hasLast: true, lastWord: "ubiquitous"}
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore(),
		WithDayTracker(days), WithClock(func() time.Time { return now }), WithPicker(last))

	snapshot, newDay := o.Start(context.Background())
	assert.True(t, newDay)
	assert.Equal(t, "laconic", snapshot.Entry.Word)
	assert.Equal(t, "laconic", days.lastWord)
	assert.True(t, days.last.Equal(now))
}

func TestStartSameDayShowsLastWord(t *testing.T) {
	now := time.Date(2025, 3, 2, 18, 0, 0, 0, time.Local)
	days := &memoryDays{last: now.Add(-8 * time.Hour), hasLast: true, lastWord: "ubiquitous"}
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore(),
		WithDayTracker(days), WithClock(func() time.Time { return now }), WithPicker(last))

	snapshot, newDay := o.Start(context.Background())
	assert.False(t, newDay)
	assert.Equal(t, "ubiquitous", snapshot.Entry.Word)
}

func TestStartSameDayLastWordMemorized(t *testing.T) {
	now := time.Date(2025, 3, 2, 18, 0, 0, 0, time.Local)
	days := &memoryDays{last: now.Add(-time.Hour), hasLast: true, lastWord: "ubiquitous"}
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore("ubiquitous"),
		WithDayTracker(days), WithClock(func() time.Time { return now }))

	snapshot, newDay := o.Start(context.Background())
	assert.False(t, newDay)
	assert.Equal(t, "laconic", snapshot.Entry.Word)
}

func TestStartWithoutHistory(t *testing.T) {
	o := New(staticFetcher(scenarioRows, nil), newMemoryStore(), WithDayTracker(&memoryDays{}))

	snapshot, newDay := o.Start(context.Background())
	assert.True(t, newDay)
	assert.Equal(t, WordReady, snapshot.State)
}

type fakeNotifier struct {
	fn func(string)
}

func (n *fakeNotifier) Subscribe(fn func(string)) func() {
	n.fn = fn
	return func() { n.fn = nil }
}

func TestFollowRedrawsOnSourceChange(t *testing.T) {
	var sheet atomic.Value
	sheet.Store("old")
	fetcher := fetchFunc(func(ctx context.Context) ([]sheets.WordEntry, error) {
		return []sheets.WordEntry{{Word: sheet.Load().(string)}}, nil
	})
	o := New(fetcher, newMemoryStore())
	require.Equal(t, "old", o.Draw(context.Background()).Entry.Word)

	notifier := &fakeNotifier{}
	stop := o.Follow(context.Background(), notifier)
	require.NotNil(t, notifier.fn)

	sheet.Store("new")
	notifier.fn("new-sheet")
	assert.Eventually(t, func() bool {
		return o.Snapshot().Entry.Word == "new"
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	assert.Nil(t, notifier.fn)
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		empty bool
	}{
		{name: "nil", err: nil, empty: true},
		{name: "canceled", err: context.Canceled, empty: true},
		{name: "fetch", err: &sheets.FetchError{Kind: sheets.KindFetch, Err: errors.New("x")}},
		{name: "decode", err: &sheets.FetchError{Kind: sheets.KindDecode, Err: errors.New("x")}},
		{name: "persist", err: memorized.ErrPersistFailed},
		{name: "unselected", err: memorized.ErrStorageUnselected},
		{name: "other", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := StatusMessage(tt.err)
			if tt.empty {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
