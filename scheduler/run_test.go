package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/versekeeper/versekeeper/cadence"
	"github.com/versekeeper/versekeeper/llm"
	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
)

var testConfig = cadence.Config{
	DailyRepeats:   7,
	WeeklyRepeats:  4,
	MonthlyRepeats: 3,
	ReviewMonths:   []int{3, 6, 12},
	YearlyInterval: 12,
}

var fixedNow = time.Date(2026, time.March, 4, 9, 0, 0, 0, time.Local)

func fixedClock() time.Time { return fixedNow }

// memStore is an in-memory ItemStore for scheduler tests.
type memStore struct {
	items  map[string]models.MemorizationItem
	order  []string
	nextID int
	// failUpdate makes UpdateItem fail for the given reference key.
	failUpdate string
	// failMove makes every MoveItem call fail.
	failMove bool
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]models.MemorizationItem)}
}

func (m *memStore) Initialize(map[string]string) error { return nil }
func (m *memStore) Close() error                       { return nil }

func (m *memStore) AddItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	m.nextID++
	item.ID = fmt.Sprintf("item-%d", m.nextID)
	if !item.Stage.Valid() {
		item.Stage = models.StageBacklog
	}
	m.items[item.ID] = item
	m.order = append(m.order, item.ID)
	return item, nil
}

func (m *memStore) GetItem(id string) (models.MemorizationItem, error) {
	item, ok := m.items[id]
	if !ok {
		return models.MemorizationItem{}, errors.New("not found")
	}
	return item, nil
}

func (m *memStore) UpdateItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	if m.failUpdate != "" && item.Reference.Key() == m.failUpdate {
		return models.MemorizationItem{}, errors.New("update refused")
	}
	if _, ok := m.items[item.ID]; !ok {
		return models.MemorizationItem{}, errors.New("not found")
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memStore) MoveItem(id string, to models.Stage) (models.MemorizationItem, error) {
	if m.failMove {
		return models.MemorizationItem{}, errors.New("move refused")
	}
	item, ok := m.items[id]
	if !ok {
		return models.MemorizationItem{}, errors.New("not found")
	}
	item.Stage = to
	m.items[id] = item
	return item, nil
}

func (m *memStore) DeleteItem(id string) error {
	if _, ok := m.items[id]; !ok {
		return errors.New("not found")
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) ListItems(stage models.Stage) ([]models.MemorizationItem, error) {
	var out []models.MemorizationItem
	for _, id := range m.order {
		if item, ok := m.items[id]; ok && item.Stage == stage {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) ListAll() ([]models.MemorizationItem, error) {
	var out []models.MemorizationItem
	for _, id := range m.order {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// fakeSuggester returns canned citations in order, then errors.
type fakeSuggester struct {
	replies []string
	calls   int
}

func (f *fakeSuggester) Suggest(context.Context, string) (string, error) {
	if f.calls >= len(f.replies) {
		f.calls++
		return "", errors.New("out of suggestions")
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

func seedItem(t *testing.T, s *memStore, citation string, stage models.Stage, counter int, completed bool) models.MemorizationItem {
	t.Helper()
	ref, err := scripture.Parse(citation)
	if err != nil {
		t.Fatal(err)
	}
	item, err := s.AddItem(models.MemorizationItem{
		Reference: ref,
		Stage:     stage,
		Counter:   counter,
		Completed: completed,
		CreatedAt: fixedNow.Add(-24 * time.Hour),
		UpdatedAt: fixedNow.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func newTestRunner(t *testing.T, s *memStore, suggester *fakeSuggester) *Runner {
	t.Helper()
	// A typed nil pointer must not become a non-nil Suggester interface.
	var sug llm.Suggester
	if suggester != nil {
		sug = suggester
	}
	r, err := NewRunner(s, testConfig, sug, nil, nil, Options{
		DailyFloor:        1,
		Topic:             "faith",
		MaxSuggestRetries: 3,
		Now:               fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunAdvancesCompletedItems(t *testing.T) {
	s := newMemStore()
	daily := seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)
	seedItem(t, s, "John 3:16", models.StageWeekly, 2, false)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Transitions) != 1 {
		t.Fatalf("got %d transitions, want 1: %+v", len(report.Transitions), report.Transitions)
	}
	tr := report.Transitions[0]
	if tr.Reference != "2 Nephi 2:25" || tr.Action != cadence.ActionReview {
		t.Errorf("unexpected transition: %+v", tr)
	}

	got, _ := s.GetItem(daily.ID)
	if got.Counter != 2 || got.Completed {
		t.Errorf("item not advanced: counter=%d completed=%v", got.Counter, got.Completed)
	}

	// The incomplete weekly item must be untouched.
	weekly, _ := s.ListItems(models.StageWeekly)
	if len(weekly) != 1 || weekly[0].Counter != 2 {
		t.Errorf("incomplete item was modified: %+v", weekly)
	}
}

func TestRunPromotesAtZero(t *testing.T) {
	s := newMemStore()
	item := seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 1, true)
	seedItem(t, s, "John 3:16", models.StageDaily, 5, false) // keeps the floor satisfied

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Transitions) != 1 || report.Transitions[0].To != string(models.StageWeekly) {
		t.Fatalf("expected one promotion to weekly, got %+v", report.Transitions)
	}

	got, _ := s.GetItem(item.ID)
	if got.Stage != models.StageWeekly || got.Counter != testConfig.WeeklyRepeats {
		t.Errorf("promotion not persisted: %+v", got)
	}
}

func TestRunPromotionIsSingleWrite(t *testing.T) {
	s := newMemStore()
	// A promotion must land through UpdateItem alone; if the runner ever
	// pairs it with a list move again, the refused move surfaces here.
	s.failMove = true
	item := seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 1, true)
	seedItem(t, s, "John 3:16", models.StageDaily, 5, false)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.ItemErrors) != 0 {
		t.Fatalf("promotion touched MoveItem: %+v", report.ItemErrors)
	}

	got, _ := s.GetItem(item.ID)
	if got.Stage != models.StageWeekly || got.Counter != testConfig.WeeklyRepeats {
		t.Errorf("stage=%s counter=%d, want weekly with %d; stage and fields must land together",
			got.Stage, got.Counter, testConfig.WeeklyRepeats)
	}
}

func TestRunIsIdempotentSameDay(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)
	seedItem(t, s, "John 3:16", models.StageDaily, 5, false)

	runner := newTestRunner(t, s, nil)
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Mark completed again, same calendar day: the run must skip it.
	all, _ := s.ListAll()
	first := all[0]
	first.Completed = true
	if _, err := s.UpdateItem(first); err != nil {
		t.Fatal(err)
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Transitions) != 0 {
		t.Errorf("second run advanced items: %+v", report.Transitions)
	}
	if report.SkippedDone != 1 {
		t.Errorf("SkippedDone = %d, want 1", report.SkippedDone)
	}

	got, _ := s.GetItem(first.ID)
	if got.Counter != 2 {
		t.Errorf("counter decremented twice in one day: %d", got.Counter)
	}
}

func TestRunDeduplicatesSameReference(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)
	// Same verse duplicated in the store (e.g. hand-edited file).
	seedItem(t, s, "2 Ne. 2:25", models.StageDaily, 3, true)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Transitions) != 1 {
		t.Errorf("duplicate reference processed twice: %+v", report.Transitions)
	}
}

func TestRunTopsUpDailyFromBacklog(t *testing.T) {
	s := newMemStore()
	backlog := seedItem(t, s, "Mosiah 2:17", models.StageBacklog, 0, false)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Introduced) != 1 || report.Introduced[0] != "Mosiah 2:17" {
		t.Fatalf("introduced = %v, want [Mosiah 2:17]", report.Introduced)
	}

	got, _ := s.GetItem(backlog.ID)
	if got.Stage != models.StageDaily || got.Counter != testConfig.DailyRepeats {
		t.Errorf("introduced item not in daily with seeded counter: %+v", got)
	}
	if got.NextDueAt == nil {
		t.Fatal("introduced item has no due date")
	}
	wantDue := time.Date(2026, time.March, 5, 8, 0, 0, 0, time.Local)
	if !got.NextDueAt.Equal(wantDue) {
		t.Errorf("due = %s, want %s", got.NextDueAt, wantDue)
	}
}

func TestRunPrunesOverlappingBacklog(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25-27", models.StageWeekly, 2, false)
	dup := seedItem(t, s, "2 Nephi 2:26", models.StageBacklog, 0, false)
	seedItem(t, s, "Alma 32:21", models.StageBacklog, 0, false)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Pruned) != 1 || report.Pruned[0] != "2 Nephi 2:26" {
		t.Errorf("pruned = %v, want [2 Nephi 2:26]", report.Pruned)
	}
	if _, err := s.GetItem(dup.ID); err == nil {
		t.Error("pruned item still in store")
	}
	if len(report.Introduced) != 1 || report.Introduced[0] != "Alma 32:21" {
		t.Errorf("introduced = %v, want [Alma 32:21]", report.Introduced)
	}
}

func TestRunSuggestsWhenBacklogEmpty(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25", models.StageWeekly, 2, false)

	// First suggestion overlaps, second is malformed, third is accepted.
	suggester := &fakeSuggester{replies: []string{"2 Nephi 2:25", "not a verse", "Moroni 10:4-5"}}

	report, err := newTestRunner(t, s, suggester).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Introduced) != 1 || report.Introduced[0] != "Moroni 10:4-5" {
		t.Fatalf("introduced = %v, want [Moroni 10:4-5]", report.Introduced)
	}
	if suggester.calls != 3 {
		t.Errorf("suggester called %d times, want 3", suggester.calls)
	}
}

func TestRunWarnsWhenSuggestionsExhausted(t *testing.T) {
	s := newMemStore()
	suggester := &fakeSuggester{replies: nil} // always errors

	report, err := newTestRunner(t, s, suggester).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Introduced) != 0 {
		t.Errorf("introduced = %v, want none", report.Introduced)
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning about exhausted suggestions")
	}
	daily, _ := s.ListItems(models.StageDaily)
	if len(daily) != 0 {
		t.Errorf("daily list = %+v, want empty", daily)
	}
}

func TestRunSkipsNoSuggesterQuietly(t *testing.T) {
	s := newMemStore()

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly the no-suggester note", report.Warnings)
	}
}

func TestRunIsolatesItemErrors(t *testing.T) {
	s := newMemStore()
	bad := seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)
	bad.Stage = "someday"
	s.items[bad.ID] = bad
	good := seedItem(t, s, "John 3:16", models.StageDaily, 3, true)

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.ItemErrors) != 1 {
		t.Fatalf("item errors = %+v, want 1", report.ItemErrors)
	}
	var serr *cadence.InvalidStateError
	if !errors.As(report.ItemErrors[0].Err, &serr) {
		t.Errorf("got %T, want *cadence.InvalidStateError", report.ItemErrors[0].Err)
	}

	// The healthy item still advanced.
	got, _ := s.GetItem(good.ID)
	if got.Counter != 2 {
		t.Errorf("good item not advanced: %+v", got)
	}
}

func TestRunReportsStoreFailurePerItem(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)
	seedItem(t, s, "John 3:16", models.StageDaily, 3, true)
	ref, _ := scripture.Parse("2 Nephi 2:25")
	s.failUpdate = ref.Key()

	report, err := newTestRunner(t, s, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.ItemErrors) != 1 || report.ItemErrors[0].Reference != "2 Nephi 2:25" {
		t.Errorf("item errors = %+v, want the refused update", report.ItemErrors)
	}
	if len(report.Transitions) != 1 || report.Transitions[0].Reference != "John 3:16" {
		t.Errorf("transitions = %+v, want only John 3:16", report.Transitions)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "2 Nephi 2:25", models.StageDaily, 3, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, s, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	bad := testConfig
	bad.DailyRepeats = 0
	if _, err := NewRunner(newMemStore(), bad, nil, nil, nil, Options{}); err == nil {
		t.Fatal("expected error for invalid cadence config")
	}
}

func TestResolverFIFO(t *testing.T) {
	s := newMemStore()
	seedItem(t, s, "Alma 32:21", models.StageBacklog, 0, false)
	seedItem(t, s, "Ether 12:27", models.StageBacklog, 0, false)

	resolver := NewResolver(s, nil, "faith", 3)
	item, pruned, err := resolver.Next(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
	if item.Reference.String() != "Alma 32:21" {
		t.Errorf("got %s, want oldest backlog item Alma 32:21", item.Reference)
	}
}

func TestResolverNoNewVerseError(t *testing.T) {
	s := newMemStore()
	suggester := &fakeSuggester{replies: []string{"garbage", "garbage", "garbage"}}

	resolver := NewResolver(s, suggester, "faith", 3)
	_, _, err := resolver.Next(context.Background(), nil)

	var nerr *NoNewVerseError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %T (%v), want *NoNewVerseError", err, err)
	}
	if nerr.Retries != 3 {
		t.Errorf("retries = %d, want 3", nerr.Retries)
	}
	if nerr.LastErr == nil {
		t.Error("expected the last parse failure to be wrapped")
	}
}
