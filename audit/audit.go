// Package audit records one structured event per state transition to a CSV
// trail. The trail is append-only; downstream tooling consumes the CSV.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Event is one state transition: who moved, from where, to where, and when
// it is due next. NextDue is empty for transitions without a due date.
type Event struct {
	Timestamp time.Time
	Reference string
	OldStage  string
	NewStage  string
	Action    string
	NextDue   time.Time
}

var header = []string{"timestamp", "reference", "old_stage", "new_stage", "action", "next_due"}

// Trail appends events to a CSV file, writing the header when the file is
// new or empty.
type Trail struct {
	fs   afero.Fs
	path string
}

// NewTrail creates a Trail on the given filesystem and path.
func NewTrail(fs afero.Fs, path string) *Trail {
	return &Trail{fs: fs, path: path}
}

// Record appends one event. Each call opens, writes, and flushes so that
// partially-applied runs still leave a complete trail for every transition
// that was committed.
func (t *Trail) Record(ev Event) error {
	dir := filepath.Dir(t.path)
	if dir != "." && dir != "" {
		if err := t.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
	}

	writeHeader := true
	if info, err := t.fs.Stat(t.path); err == nil && info.Size() > 0 {
		writeHeader = false
	}

	f, err := t.fs.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit trail: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}

	nextDue := ""
	if !ev.NextDue.IsZero() {
		nextDue = ev.NextDue.Format(time.RFC3339)
	}
	record := []string{
		ev.Timestamp.Format(time.RFC3339),
		ev.Reference,
		ev.OldStage,
		ev.NewStage,
		ev.Action,
		nextDue,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	w.Flush()
	return w.Error()
}
