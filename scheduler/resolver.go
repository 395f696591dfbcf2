package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/versekeeper/versekeeper/llm"
	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
	"github.com/versekeeper/versekeeper/store"
)

// NoNewVerseError is returned when the resolver exhausted the Backlog and the
// bounded suggestion retries without finding a non-overlapping verse. Callers
// treat it as a run-level warning, not a crash.
type NoNewVerseError struct {
	Retries int
	LastErr error
}

func (e *NoNewVerseError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("no new verse found after %d attempts: %v", e.Retries, e.LastErr)
	}
	return fmt.Sprintf("no new verse found after %d attempts", e.Retries)
}

func (e *NoNewVerseError) Unwrap() error { return e.LastErr }

// Resolver decides where the next new verse comes from: the oldest Backlog
// item first, then the suggestion fallback. Every candidate, Backlog or
// suggested, goes through the overlap check before acceptance.
type Resolver struct {
	store      store.ItemStore
	suggester  llm.Suggester // nil disables the fallback
	topic      string
	maxRetries int
}

// NewResolver creates a Resolver. maxRetries bounds suggestion attempts;
// values below one fall back to a single attempt.
func NewResolver(s store.ItemStore, suggester llm.Suggester, topic string, maxRetries int) *Resolver {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Resolver{store: s, suggester: suggester, topic: topic, maxRetries: maxRetries}
}

// Next returns the Backlog item to introduce next. Backlog entries that
// overlap an existing active reference are pruned on the way (returned for
// reporting). With the Backlog exhausted, the suggester is asked up to
// maxRetries times; an accepted suggestion is inserted into the Backlog and
// returned.
func (r *Resolver) Next(ctx context.Context, existing []scripture.Reference) (models.MemorizationItem, []scripture.Reference, error) {
	var pruned []scripture.Reference

	backlog, err := r.store.ListItems(models.StageBacklog)
	if err != nil {
		return models.MemorizationItem{}, nil, err
	}

	// Pass 1: clean duplicates, pop the first clear item (FIFO by insertion).
	for _, item := range backlog {
		if collision := scripture.FindCollision(item.Reference, existing); collision != nil {
			if err := r.store.DeleteItem(item.ID); err != nil {
				return models.MemorizationItem{}, pruned, err
			}
			pruned = append(pruned, item.Reference)
			continue
		}
		return item, pruned, nil
	}

	if r.suggester == nil {
		return models.MemorizationItem{}, pruned, &NoNewVerseError{Retries: 0, LastErr: errors.New("backlog empty and no suggester configured")}
	}

	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return models.MemorizationItem{}, pruned, ctx.Err()
		}

		raw, err := r.suggester.Suggest(ctx, r.topic)
		if err != nil {
			lastErr = err
			continue
		}

		ref, err := scripture.Parse(raw)
		if err != nil {
			lastErr = err
			continue
		}

		if collision := scripture.FindCollision(ref, existing); collision != nil {
			lastErr = collision
			continue
		}

		item, err := r.store.AddItem(models.NewItem(ref))
		if err != nil {
			return models.MemorizationItem{}, pruned, err
		}
		return item, pruned, nil
	}

	return models.MemorizationItem{}, pruned, &NoNewVerseError{Retries: r.maxRetries, LastErr: lastErr}
}
