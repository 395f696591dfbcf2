// Package llm provides the suggestion fallback: when the Backlog is empty,
// a language model proposes the next verse to memorize. Suggestions are raw
// citation strings and are never trusted; the scheduler parses and
// overlap-checks every one before acceptance.
package llm

import (
	"context"
	"fmt"
)

// Suggester proposes a scripture citation for a topic. The returned string is
// unvalidated free text, e.g. "Mosiah 2:17".
type Suggester interface {
	Suggest(ctx context.Context, topic string) (string, error)
}

// SuggestionError wraps a failed suggestion call. Suggestion failures are
// best-effort and degrade gracefully; the run continues without a new verse.
type SuggestionError struct {
	Topic string
	Err   error
}

func (e *SuggestionError) Error() string {
	return fmt.Sprintf("suggestion for topic %q failed: %v", e.Topic, e.Err)
}

func (e *SuggestionError) Unwrap() error { return e.Err }
