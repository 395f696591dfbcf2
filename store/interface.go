package store

import (
	"fmt"

	"github.com/versekeeper/versekeeper/models"
)

// ItemStore defines the interface for memorization-item persistence.
// The store is the system of record; the scheduler operates on an in-memory
// snapshot per run and writes back changed items only. Each mutation is
// applied atomically per item; there is no multi-item transaction.
type ItemStore interface {
	// Initialize configures the store with backend-specific settings
	// (file path, data format). It must be called before any other operation.
	Initialize(config map[string]string) error

	// AddItem inserts a new item into the list for its stage. It returns the
	// stored item with store-generated fields (ID, timestamps) populated.
	AddItem(item models.MemorizationItem) (models.MemorizationItem, error)

	// GetItem retrieves an item by its unique identifier.
	GetItem(id string) (models.MemorizationItem, error)

	// UpdateItem replaces the stored item identified by item.ID.
	UpdateItem(item models.MemorizationItem) (models.MemorizationItem, error)

	// MoveItem reassigns an item to the list for another stage.
	MoveItem(id string, to models.Stage) (models.MemorizationItem, error)

	// DeleteItem removes an item from the store.
	DeleteItem(id string) error

	// ListItems retrieves the items in one stage's list, ordered by insertion
	// time (oldest first).
	ListItems(stage models.Stage) ([]models.MemorizationItem, error)

	// ListAll retrieves every item across all stage lists.
	ListAll() ([]models.MemorizationItem, error)

	// Close releases any resources held by the store, such as file locks or
	// database connections.
	Close() error
}

// StoreError wraps a persistence failure with the operation and item that
// produced it. Per-item store failures are reported individually and never
// abort a whole run.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s item %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
