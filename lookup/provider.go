// Package lookup fetches scripture text for a reference. Providers are
// ranked and tried in order; a failure falls through to the next provider.
// Text lookup is best-effort throughout the program: items proceed with
// empty notes when every provider fails.
package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/versekeeper/versekeeper/scripture"
)

// TextProvider fetches the plain text of one reference.
type TextProvider interface {
	Name() string
	FetchText(ctx context.Context, ref scripture.Reference) (string, error)
}

// LookupError reports that every ranked provider failed for a reference.
type LookupError struct {
	Reference scripture.Reference
	Attempts  []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no text found for %s (tried %s)", e.Reference, strings.Join(e.Attempts, ", "))
}

// Resolver tries a ranked list of providers in order.
type Resolver struct {
	providers []TextProvider
}

// NewResolver creates a Resolver over the given providers, ranked
// first-to-last.
func NewResolver(providers ...TextProvider) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve returns the first provider's text for the reference. Individual
// provider failures are swallowed; only total failure surfaces, as a
// LookupError listing each attempt.
func (r *Resolver) Resolve(ctx context.Context, ref scripture.Reference) (string, error) {
	attempts := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		text, err := p.FetchText(ctx, ref)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", p.Name(), err))
		} else {
			attempts = append(attempts, fmt.Sprintf("%s: empty text", p.Name()))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", &LookupError{Reference: ref, Attempts: attempts}
}
