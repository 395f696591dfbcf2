package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/versekeeper/versekeeper/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
	id               TEXT PRIMARY KEY,
	book             TEXT NOT NULL,
	chapter          INTEGER NOT NULL,
	verse_start      INTEGER NOT NULL,
	verse_end        INTEGER NOT NULL,
	stage            TEXT NOT NULL,
	counter          INTEGER NOT NULL DEFAULT 0,
	mastered_cursor  INTEGER NOT NULL DEFAULT 0,
	completed        INTEGER NOT NULL DEFAULT 0,
	notes            TEXT NOT NULL DEFAULT '',
	last_reviewed_at TEXT,
	next_due_at      TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_stage ON items(stage, created_at);
`

const itemColumns = `id, book, chapter, verse_start, verse_end, stage, counter,
	mastered_cursor, completed, notes, last_reviewed_at, next_due_at, created_at, updated_at`

// SQLiteItemStore implements ItemStore on a SQLite database file. It is the
// backend of choice when several tools share one library of verses; the file
// backend stays the default for single-user setups.
type SQLiteItemStore struct {
	db *sql.DB
}

// NewSQLiteItemStore creates a new instance of SQLiteItemStore.
// It does not open the database; Initialize must be called separately.
func NewSQLiteItemStore() *SQLiteItemStore {
	return &SQLiteItemStore{}
}

// Initialize opens the database named by the 'dataFile' config key and
// applies the schema.
func (s *SQLiteItemStore) Initialize(config map[string]string) error {
	path := config[dataFileKey]
	if path == "" {
		path = "verses.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// Serialize writers; the scheduler assumes at most one concurrent run.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply schema to %s: %w", path, err)
	}
	s.db = db
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func scanTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanItem(row interface{ Scan(...any) error }) (models.MemorizationItem, error) {
	var (
		item                  models.MemorizationItem
		stage                 string
		completed             int
		lastReviewed, nextDue sql.NullString
		createdAt, updatedAt  string
	)
	err := row.Scan(&item.ID, &item.Reference.Book, &item.Reference.Chapter,
		&item.Reference.Start, &item.Reference.End, &stage, &item.Counter,
		&item.MasteredCursor, &completed, &item.Notes, &lastReviewed, &nextDue,
		&createdAt, &updatedAt)
	if err != nil {
		return models.MemorizationItem{}, err
	}

	item.Stage = models.Stage(stage)
	item.Completed = completed != 0
	if item.LastReviewedAt, err = scanTimePtr(lastReviewed); err != nil {
		return models.MemorizationItem{}, fmt.Errorf("bad last_reviewed_at: %w", err)
	}
	if item.NextDueAt, err = scanTimePtr(nextDue); err != nil {
		return models.MemorizationItem{}, fmt.Errorf("bad next_due_at: %w", err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.MemorizationItem{}, fmt.Errorf("bad created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return models.MemorizationItem{}, fmt.Errorf("bad updated_at: %w", err)
	}
	return item, nil
}

func (s *SQLiteItemStore) writeItem(op string, item models.MemorizationItem, insert bool) (models.MemorizationItem, error) {
	if err := models.ValidateStruct(item); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: op, ID: item.ID, Err: err}
	}

	var query string
	if insert {
		query = `INSERT INTO items (` + itemColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	} else {
		query = `UPDATE items SET book=?, chapter=?, verse_start=?, verse_end=?, stage=?,
			counter=?, mastered_cursor=?, completed=?, notes=?, last_reviewed_at=?,
			next_due_at=?, created_at=?, updated_at=? WHERE id=?`
	}

	completed := 0
	if item.Completed {
		completed = 1
	}
	args := []any{
		item.Reference.Book, item.Reference.Chapter, item.Reference.Start,
		item.Reference.End, string(item.Stage), item.Counter, item.MasteredCursor,
		completed, item.Notes, formatTimePtr(item.LastReviewedAt),
		formatTimePtr(item.NextDueAt),
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
		item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if insert {
		args = append([]any{item.ID}, args...)
	} else {
		args = append(args, item.ID)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return models.MemorizationItem{}, &StoreError{Op: op, ID: item.ID, Err: err}
	}
	if !insert {
		if n, _ := res.RowsAffected(); n == 0 {
			return models.MemorizationItem{}, &StoreError{Op: op, ID: item.ID, Err: fmt.Errorf("not found")}
		}
	}
	return item, nil
}

// AddItem inserts a new item, assigning its ID and timestamps.
func (s *SQLiteItemStore) AddItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	if item.ID == "" {
		item.ID = generateID()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if !item.Stage.Valid() {
		item.Stage = models.StageBacklog
	}
	return s.writeItem("add", item, true)
}

// GetItem retrieves an item by its unique identifier.
func (s *SQLiteItemStore) GetItem(id string) (models.MemorizationItem, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id=?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MemorizationItem{}, &StoreError{Op: "get", ID: id, Err: fmt.Errorf("not found")}
	}
	if err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "get", ID: id, Err: err}
	}
	return item, nil
}

// UpdateItem replaces the stored item identified by item.ID.
func (s *SQLiteItemStore) UpdateItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	item.UpdatedAt = time.Now().UTC()
	return s.writeItem("update", item, false)
}

// MoveItem reassigns an item to the list for another stage.
func (s *SQLiteItemStore) MoveItem(id string, to models.Stage) (models.MemorizationItem, error) {
	if !to.Valid() {
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: fmt.Errorf("unknown stage %q", to)}
	}
	item, err := s.GetItem(id)
	if err != nil {
		return models.MemorizationItem{}, err
	}
	item.Stage = to
	return s.UpdateItem(item)
}

// DeleteItem removes an item from the store.
func (s *SQLiteItemStore) DeleteItem(id string) error {
	res, err := s.db.Exec(`DELETE FROM items WHERE id=?`, id)
	if err != nil {
		return &StoreError{Op: "delete", ID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StoreError{Op: "delete", ID: id, Err: fmt.Errorf("not found")}
	}
	return nil
}

// ListItems retrieves the items in one stage's list, oldest first.
func (s *SQLiteItemStore) ListItems(stage models.Stage) ([]models.MemorizationItem, error) {
	return s.query(`SELECT `+itemColumns+` FROM items WHERE stage=? ORDER BY created_at`, string(stage))
}

// ListAll retrieves every item across all stage lists, oldest first.
func (s *SQLiteItemStore) ListAll() ([]models.MemorizationItem, error) {
	return s.query(`SELECT ` + itemColumns + ` FROM items ORDER BY created_at`)
}

func (s *SQLiteItemStore) query(q string, args ...any) ([]models.MemorizationItem, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var items []models.MemorizationItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return items, nil
}

// Close closes the underlying database.
func (s *SQLiteItemStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// compile-time interface checks
var (
	_ ItemStore = (*FileItemStore)(nil)
	_ ItemStore = (*SQLiteItemStore)(nil)
)
