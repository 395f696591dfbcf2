package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// TransitionRecord is the reportable shape of one applied state change.
type TransitionRecord struct {
	Reference string
	From      string
	To        string
	Action    string
	NextDue   time.Time
}

// ItemError is a per-item failure collected during a run. Per-item errors
// never abort the run; they surface here.
type ItemError struct {
	Reference string
	Err       error
}

// RunReport summarizes one scheduler run for the caller and the CLI.
type RunReport struct {
	StartedAt   time.Time
	Transitions []TransitionRecord
	Introduced  []string
	Pruned      []string
	NotesFilled []string
	SkippedDone int
	ItemErrors  []ItemError
	Warnings    []string
}

// Changed reports whether the run produced any state change.
func (r *RunReport) Changed() bool {
	return len(r.Transitions) > 0 || len(r.Introduced) > 0 || len(r.Pruned) > 0 || len(r.NotesFilled) > 0
}

// Summary renders the report as human-readable lines.
func (r *RunReport) Summary() string {
	var sb strings.Builder

	if !r.Changed() && len(r.ItemErrors) == 0 && len(r.Warnings) == 0 {
		sb.WriteString("Nothing to do: no completed reviews and the Daily list is full.\n")
		return sb.String()
	}

	for _, tr := range r.Transitions {
		if tr.From == tr.To {
			fmt.Fprintf(&sb, "[%s] Rescheduled %s for %s\n", titleStage(tr.From), tr.Reference, tr.NextDue.Format("01/02/2006 15:04"))
		} else {
			fmt.Fprintf(&sb, "[%s→%s] %s scheduled %s\n", titleStage(tr.From), titleStage(tr.To), tr.Reference, tr.NextDue.Format("01/02/2006 15:04"))
		}
	}
	for _, ref := range r.Introduced {
		fmt.Fprintf(&sb, "New verse moved from Backlog → Daily: %s\n", ref)
	}
	for _, ref := range r.Pruned {
		fmt.Fprintf(&sb, "Cleaned duplicate from Backlog: %s\n", ref)
	}
	if len(r.NotesFilled) > 0 {
		fmt.Fprintf(&sb, "Filled notes for %d item(s).\n", len(r.NotesFilled))
	}
	if r.SkippedDone > 0 {
		fmt.Fprintf(&sb, "Skipped %d item(s) already reviewed today.\n", r.SkippedDone)
	}
	for _, ie := range r.ItemErrors {
		fmt.Fprintf(&sb, "Error on %s: %v\n", ie.Reference, ie.Err)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "Warning: %s\n", w)
	}
	return sb.String()
}

func titleStage(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
