package scripture

import "fmt"

// OverlapError reports a candidate reference that collides with an existing
// one. The candidate is rejected; Existing names the collision target.
type OverlapError struct {
	Candidate Reference
	Existing  Reference
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s overlaps existing %s", e.Candidate, e.Existing)
}

// Overlaps reports whether two references share the same book, the same
// chapter, and intersecting verse intervals. The check is symmetric, and a
// single verse overlaps any range containing it.
func Overlaps(a, b Reference) bool {
	if normalizeBookKey(a.Book) != normalizeBookKey(b.Book) {
		return false
	}
	if a.Chapter != b.Chapter {
		return false
	}
	return a.Start <= b.End && b.Start <= a.End
}

// FindCollision returns the first member of existing that the candidate
// overlaps, or a nil error when the candidate is clear of the whole set.
func FindCollision(candidate Reference, existing []Reference) error {
	for _, ref := range existing {
		if Overlaps(candidate, ref) {
			return &OverlapError{Candidate: candidate, Existing: ref}
		}
	}
	return nil
}
