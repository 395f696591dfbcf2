// Package cadence implements the stage-progression state machine of the
// Featherstone memorization method. The Tracker is the only component that
// decides counter and stage mutations; callers apply the resulting
// transitions to the store.
package cadence

import (
	"fmt"
	"time"

	"github.com/versekeeper/versekeeper/models"
)

// reviewHour is the local hour all computed due dates land on, matching the
// program's next-morning-at-8 convention.
const reviewHour = 8

// Actions recorded on transitions and in the audit trail.
const (
	ActionReview    = "review"
	ActionPromote   = "promote"
	ActionIntroduce = "introduce"
)

// Config holds the cadence thresholds. All repeat counts must be positive and
// ReviewMonths must be strictly increasing; Validate is called before any run.
type Config struct {
	DailyRepeats   int
	WeeklyRepeats  int
	MonthlyRepeats int
	ReviewMonths   []int
	YearlyInterval int
}

// Validate rejects configurations that would corrupt the state machine.
func (c Config) Validate() error {
	if c.DailyRepeats < 1 || c.WeeklyRepeats < 1 || c.MonthlyRepeats < 1 {
		return fmt.Errorf("cadence: repeat counts must be positive (daily=%d weekly=%d monthly=%d)",
			c.DailyRepeats, c.WeeklyRepeats, c.MonthlyRepeats)
	}
	if len(c.ReviewMonths) == 0 {
		return fmt.Errorf("cadence: mastered review months must not be empty")
	}
	prev := 0
	for i, m := range c.ReviewMonths {
		if m <= prev {
			return fmt.Errorf("cadence: review months must be strictly increasing, got %v at index %d", c.ReviewMonths, i)
		}
		prev = m
	}
	if c.YearlyInterval < 1 {
		return fmt.Errorf("cadence: yearly interval must be positive, got %d", c.YearlyInterval)
	}
	return nil
}

// InvalidStateError reports an item whose stored stage is not part of the
// state machine. The item is left untouched so the caller can skip it and
// continue with others.
type InvalidStateError struct {
	ID    string
	Stage string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("item %s has unrecognized stage %q", e.ID, e.Stage)
}

// Transition describes one computed state change. Item carries the updated
// copy; the original is never mutated.
type Transition struct {
	Item    models.MemorizationItem
	From    models.Stage
	To      models.Stage
	Action  string
	NextDue time.Time
}

// Tracker computes stage transitions for completed reviews.
type Tracker struct {
	cfg Config
	now func() time.Time
}

// NewTracker creates a Tracker. A nil now func defaults to time.Now, which
// tests override with a fixed clock.
func NewTracker(cfg Config, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{cfg: cfg, now: now}
}

// Advance processes one completed review for an item in an active stage.
// Counters never go below zero; a counter reaching zero promotes the item and
// seeds the next stage's counter. Mastered items rotate through the review
// month sequence and then stabilize at the yearly interval.
func (t *Tracker) Advance(item models.MemorizationItem) (Transition, error) {
	now := t.now()
	updated := item
	updated.Completed = false
	updated.LastReviewedAt = &now
	updated.UpdatedAt = now

	tr := Transition{From: item.Stage, To: item.Stage, Action: ActionReview}

	switch item.Stage {
	case models.StageDaily:
		updated.Counter = decrement(item.Counter)
		if updated.Counter == 0 {
			updated.Stage = models.StageWeekly
			updated.Counter = t.cfg.WeeklyRepeats
			tr.To = models.StageWeekly
			tr.Action = ActionPromote
			tr.NextDue = at8(now.AddDate(0, 0, 7))
		} else {
			tr.NextDue = at8(now.AddDate(0, 0, 1))
		}

	case models.StageWeekly:
		updated.Counter = decrement(item.Counter)
		if updated.Counter == 0 {
			updated.Stage = models.StageMonthly
			updated.Counter = t.cfg.MonthlyRepeats
			tr.To = models.StageMonthly
			tr.Action = ActionPromote
			tr.NextDue = at8(now.AddDate(0, 0, 30))
		} else {
			tr.NextDue = at8(now.AddDate(0, 0, 7))
		}

	case models.StageMonthly:
		updated.Counter = decrement(item.Counter)
		if updated.Counter == 0 {
			updated.Stage = models.StageMastered
			updated.MasteredCursor = 0
			tr.To = models.StageMastered
			tr.Action = ActionPromote
			tr.NextDue = at8(now.AddDate(0, t.cfg.ReviewMonths[0], 0))
		} else {
			tr.NextDue = at8(now.AddDate(0, 0, 30))
		}

	case models.StageMastered:
		// Terminal stage: no further promotion, but reviews never stop.
		cursor := item.MasteredCursor + 1
		if cursor > len(t.cfg.ReviewMonths) {
			cursor = len(t.cfg.ReviewMonths)
		}
		updated.MasteredCursor = cursor
		if cursor < len(t.cfg.ReviewMonths) {
			tr.NextDue = at8(now.AddDate(0, t.cfg.ReviewMonths[cursor], 0))
		} else {
			tr.NextDue = at8(now.AddDate(0, t.cfg.YearlyInterval, 0))
		}

	default:
		return Transition{}, &InvalidStateError{ID: item.ID, Stage: string(item.Stage)}
	}

	due := tr.NextDue
	updated.NextDueAt = &due
	tr.Item = updated
	return tr, nil
}

// Introduce moves a Backlog item into Daily. This is the only transition not
// triggered by a completed review; the Scheduler invokes it when a new verse
// enters rotation.
func (t *Tracker) Introduce(item models.MemorizationItem) Transition {
	now := t.now()
	due := at8(now.AddDate(0, 0, 1))

	updated := item
	updated.Stage = models.StageDaily
	updated.Counter = t.cfg.DailyRepeats
	updated.Completed = false
	updated.NextDueAt = &due
	updated.UpdatedAt = now

	return Transition{
		Item:    updated,
		From:    item.Stage,
		To:      models.StageDaily,
		Action:  ActionIntroduce,
		NextDue: due,
	}
}

func decrement(counter int) int {
	if counter <= 0 {
		return 0
	}
	return counter - 1
}

// at8 normalizes a timestamp to 08:00 local on the same calendar day.
func at8(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), reviewHour, 0, 0, 0, ts.Location())
}
