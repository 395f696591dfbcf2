// Package scheduler orchestrates one run of the memorization program:
// advance completed reviews, fill missing notes, and introduce a new verse
// when the Daily list runs low.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/versekeeper/versekeeper/audit"
	"github.com/versekeeper/versekeeper/cadence"
	"github.com/versekeeper/versekeeper/llm"
	"github.com/versekeeper/versekeeper/lookup"
	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
	"github.com/versekeeper/versekeeper/store"
)

// Options configures a Runner beyond its collaborators.
type Options struct {
	// DailyFloor is the minimum Daily list size; below it a new verse is
	// introduced. Values below one default to one.
	DailyFloor int
	// Topic seeds the suggestion fallback.
	Topic string
	// MaxSuggestRetries bounds suggestion attempts per run.
	MaxSuggestRetries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Runner drives one run to completion. It is single-threaded and
// run-to-completion: items are processed sequentially, per-item failures are
// isolated into the report, and a run may be cancelled between items without
// invalidating updates already committed.
type Runner struct {
	store    store.ItemStore
	tracker  *cadence.Tracker
	resolver *Resolver
	texts    *lookup.Resolver // nil disables notes fill
	trail    *audit.Trail     // nil disables the audit trail
	floor    int
	now      func() time.Time
}

// NewRunner wires a Runner. The cadence config is validated here; an invalid
// config is a programmer error and fails before any mutation.
func NewRunner(s store.ItemStore, cfg cadence.Config, suggester llm.Suggester, texts *lookup.Resolver, trail *audit.Trail, opts Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	floor := opts.DailyFloor
	if floor < 1 {
		floor = 1
	}
	return &Runner{
		store:    s,
		tracker:  cadence.NewTracker(cfg, now),
		resolver: NewResolver(s, suggester, opts.Topic, opts.MaxSuggestRetries),
		texts:    texts,
		trail:    trail,
		floor:    floor,
		now:      now,
	}, nil
}

// Run executes one full pass: (a) advance every completed-but-unprocessed
// item, (b) fill missing notes for Daily items, (c) top up the Daily list
// through the resolver. Returns the report of applied changes; the only
// fatal error is failing to read the snapshot.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{StartedAt: r.now()}

	snapshot, err := r.store.ListAll()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	r.advanceCompleted(ctx, snapshot, report)
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	r.fillNotes(ctx, report)
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	r.topUpDaily(ctx, report)
	return report, ctx.Err()
}

// advanceCompleted runs the state machine over every completed item.
// Each reference is processed at most once per run, and an item already
// reviewed on this calendar day is skipped so a crashed run can be repeated
// safely.
func (r *Runner) advanceCompleted(ctx context.Context, snapshot []models.MemorizationItem, report *RunReport) {
	processed := make(map[string]bool)
	today := r.now()

	for _, item := range snapshot {
		if ctx.Err() != nil {
			return
		}
		if item.Stage == models.StageBacklog || !item.Completed {
			continue
		}

		key := item.Reference.Key()
		if processed[key] {
			continue
		}
		processed[key] = true

		if item.LastReviewedAt != nil && sameDay(*item.LastReviewedAt, today) {
			report.SkippedDone++
			continue
		}

		tr, err := r.tracker.Advance(item)
		if err != nil {
			// Unrecognized stage: leave the item untouched and continue.
			report.ItemErrors = append(report.ItemErrors, ItemError{Reference: item.Reference.String(), Err: err})
			continue
		}
		r.applyTransition(tr, report)
	}
}

// applyTransition persists one transition and records it in the audit trail.
// The updated item carries its new stage, so a promotion lands in one
// UpdateItem write; there is no window where the item sits in the new list
// with stale counter or due fields. Store failures are reported per item;
// they do not roll back transitions already applied.
func (r *Runner) applyTransition(tr cadence.Transition, report *RunReport) {
	refStr := tr.Item.Reference.String()

	if _, err := r.store.UpdateItem(tr.Item); err != nil {
		report.ItemErrors = append(report.ItemErrors, ItemError{Reference: refStr, Err: err})
		return
	}

	report.Transitions = append(report.Transitions, TransitionRecord{
		Reference: refStr,
		From:      string(tr.From),
		To:        string(tr.To),
		Action:    tr.Action,
		NextDue:   tr.NextDue,
	})

	if r.trail != nil {
		err := r.trail.Record(audit.Event{
			Timestamp: r.now(),
			Reference: refStr,
			OldStage:  string(tr.From),
			NewStage:  string(tr.To),
			Action:    tr.Action,
			NextDue:   tr.NextDue,
		})
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("audit trail: %v", err))
		}
	}
}

// fillNotes fetches verse text for Daily items with empty notes. Lookup
// failures are non-fatal; the item proceeds with empty notes.
func (r *Runner) fillNotes(ctx context.Context, report *RunReport) {
	if r.texts == nil {
		return
	}

	daily, err := r.store.ListItems(models.StageDaily)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("list daily for notes fill: %v", err))
		return
	}

	for _, item := range daily {
		if ctx.Err() != nil {
			return
		}
		if item.Notes != "" {
			continue
		}

		text, err := r.texts.Resolve(ctx, item.Reference)
		if err != nil {
			report.Warnings = append(report.Warnings, err.Error())
			continue
		}

		item.Notes = text
		if _, err := r.store.UpdateItem(item); err != nil {
			report.ItemErrors = append(report.ItemErrors, ItemError{Reference: item.Reference.String(), Err: err})
			continue
		}
		report.NotesFilled = append(report.NotesFilled, item.Reference.String())
	}
}

// topUpDaily introduces a new verse when the Daily list is below the floor.
// Resolver exhaustion surfaces as a run-level warning, not a failure.
func (r *Runner) topUpDaily(ctx context.Context, report *RunReport) {
	daily, err := r.store.ListItems(models.StageDaily)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("list daily for top-up: %v", err))
		return
	}
	if len(daily) >= r.floor {
		return
	}

	existing, err := r.activeReferences()
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("collect active references: %v", err))
		return
	}

	item, pruned, err := r.resolver.Next(ctx, existing)
	for _, ref := range pruned {
		report.Pruned = append(report.Pruned, ref.String())
	}
	if err != nil {
		report.Warnings = append(report.Warnings, err.Error())
		return
	}

	tr := r.tracker.Introduce(item)
	r.applyTransition(tr, report)
	if len(report.ItemErrors) > 0 && report.ItemErrors[len(report.ItemErrors)-1].Reference == item.Reference.String() {
		return
	}
	report.Introduced = append(report.Introduced, item.Reference.String())
	// The introduce transition is also counted in Transitions; keep the
	// introduced list as the user-facing signal and drop the duplicate.
	if n := len(report.Transitions); n > 0 && report.Transitions[n-1].Action == cadence.ActionIntroduce {
		report.Transitions = report.Transitions[:n-1]
	}
}

// activeReferences collects every reference outside the Backlog.
func (r *Runner) activeReferences() ([]scripture.Reference, error) {
	all, err := r.store.ListAll()
	if err != nil {
		return nil, err
	}
	refs := make([]scripture.Reference, 0, len(all))
	for _, item := range all {
		if item.Stage == models.StageBacklog {
			continue
		}
		refs = append(refs, item.Reference)
	}
	return refs, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
