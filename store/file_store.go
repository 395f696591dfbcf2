package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/versekeeper/versekeeper/models"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultDataFile   = "verses.json"
	dataFileKey       = "dataFile"
	dataFileFormatKey = "dataFileFormat"
	defaultDataFormat = "json"
	formatJSON        = "json"
	formatYAML        = "yaml"
	formatTOML        = "toml"
	checksumSuffix    = ".checksum"
)

// FileItemStore implements ItemStore using a single file backend.
// It supports JSON, YAML, and TOML formats, uses file-level locking, and
// keeps a checksum sidecar to detect corruption.
type FileItemStore struct {
	filePath string
	items    map[string]models.MemorizationItem
	flk      *flock.Flock
	format   string
}

// NewFileItemStore creates a new instance of FileItemStore.
// It does not initialize the store; Initialize must be called separately.
func NewFileItemStore() *FileItemStore {
	return &FileItemStore{
		items: make(map[string]models.MemorizationItem),
	}
}

// Initialize configures the FileItemStore. It expects a 'dataFile' key in the
// config map; without one it defaults to 'verses.json' in the working
// directory. Existing items are loaded and a file lock is established.
func (s *FileItemStore) Initialize(config map[string]string) error {
	if val, ok := config[dataFileKey]; ok && val != "" {
		s.filePath = val
	} else {
		s.filePath = defaultDataFile
	}

	if val, ok := config[dataFileFormatKey]; ok && val != "" {
		formatLower := strings.ToLower(val)
		switch formatLower {
		case formatJSON, formatYAML, formatTOML:
			s.format = formatLower
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s. Supported formats are json, yaml, toml", val)
		}
	} else {
		s.format = defaultDataFormat
	}

	if s.filePath == defaultDataFile && s.format != formatJSON {
		ext := filepath.Ext(s.filePath)
		s.filePath = strings.TrimSuffix(s.filePath, ext) + "." + s.format
	}

	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s.flk = flock.New(s.filePath)

	locked, err := s.flk.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire initial lock for %s: %w", s.filePath, err)
	}
	if !locked {
		// Another process holds the lock; block until initialization can complete.
		if err := s.flk.Lock(); err != nil {
			return fmt.Errorf("failed to acquire blocking initial lock for %s: %w", s.filePath, err)
		}
	}
	defer func() { _ = s.flk.Unlock() }()

	s.items = make(map[string]models.MemorizationItem)
	return s.loadItemsFromFileInternal()
}

// calculateChecksum computes the SHA256 checksum of the given data.
func calculateChecksum(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// loadItemsFromFileInternal reads items from the file, verifies the checksum,
// and unmarshals. Assumes the file lock is held.
func (s *FileItemStore) loadItemsFromFileInternal() error {
	checksumFilePath := s.filePath + checksumSuffix

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.items = make(map[string]models.MemorizationItem)
			_ = os.Remove(checksumFilePath)
			if f, createErr := os.OpenFile(s.filePath, os.O_CREATE|os.O_RDWR, 0o644); createErr != nil {
				return fmt.Errorf("failed to create data file %s: %w", s.filePath, createErr)
			} else {
				_ = f.Close()
			}
			if err := os.WriteFile(checksumFilePath, []byte(calculateChecksum([]byte{})), 0o644); err != nil {
				fmt.Printf("Warning: could not write initial checksum file %s: %v\n", checksumFilePath, err)
			}
			return nil
		}
		return fmt.Errorf("failed to read data file %s: %w", s.filePath, err)
	}

	if _, err := os.Stat(checksumFilePath); err == nil {
		expectedChecksumBytes, readErr := os.ReadFile(checksumFilePath)
		if readErr != nil {
			return fmt.Errorf("failed to read checksum file %s: %w - data file might be corrupt or tampered", checksumFilePath, readErr)
		}
		expectedChecksum := strings.TrimSpace(string(expectedChecksumBytes))
		actualChecksum := calculateChecksum(data)

		if actualChecksum != expectedChecksum {
			return fmt.Errorf("checksum mismatch for %s - expected %s, got %s - file is corrupt or tampered", s.filePath, expectedChecksum, actualChecksum)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking checksum file %s: %w", checksumFilePath, err)
	}
	// Missing checksum file with an existing data file is pre-checksum data;
	// load it and let the next save create the sidecar.

	if len(data) == 0 {
		_ = os.WriteFile(checksumFilePath, []byte(calculateChecksum([]byte{})), 0o644) // best effort
		s.items = make(map[string]models.MemorizationItem)
		return nil
	}

	var itemList models.ItemList
	switch s.format {
	case formatJSON:
		if err := json.Unmarshal(data, &itemList); err != nil {
			return fmt.Errorf("failed to unmarshal JSON from %s (checksum may have passed): %w", s.filePath, err)
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &itemList); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from %s (checksum may have passed): %w", s.filePath, err)
		}
	case formatTOML:
		if err := toml.Unmarshal(data, &itemList); err != nil {
			return fmt.Errorf("failed to unmarshal TOML from %s (checksum may have passed): %w", s.filePath, err)
		}
	default:
		return fmt.Errorf("unsupported data format for loading: %s", s.format)
	}

	s.items = make(map[string]models.MemorizationItem, len(itemList.Items))
	for _, item := range itemList.Items {
		s.items[item.ID] = item
	}
	return nil
}

// saveItemsToFileInternal writes items to the file, then its checksum.
// Writes go through temp files and are renamed into place.
func (s *FileItemStore) saveItemsToFileInternal() error {
	itemList := models.ItemList{
		Items:      make([]models.MemorizationItem, 0, len(s.items)),
		TotalCount: len(s.items),
	}
	for _, item := range s.items {
		itemList.Items = append(itemList.Items, item)
	}
	sort.Slice(itemList.Items, func(i, j int) bool {
		return itemList.Items[i].CreatedAt.Before(itemList.Items[j].CreatedAt)
	})

	var marshaledData []byte
	var err error

	switch s.format {
	case formatJSON:
		marshaledData, err = json.MarshalIndent(itemList, "", "  ")
	case formatYAML:
		marshaledData, err = yaml.Marshal(itemList)
	case formatTOML:
		buf := new(bytes.Buffer)
		if encodeErr := toml.NewEncoder(buf).Encode(itemList); encodeErr == nil {
			marshaledData = buf.Bytes()
		} else {
			err = fmt.Errorf("failed to marshal TOML: %w", encodeErr)
		}
	default:
		return fmt.Errorf("unsupported data format for saving: %s", s.format)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal items to %s: %w", s.format, err)
	}

	tempFilePath := s.filePath + ".tmp"
	checksumFilePath := s.filePath + checksumSuffix
	tempChecksumFilePath := checksumFilePath + ".tmp"

	defer func() { _ = os.Remove(tempFilePath) }()
	defer func() { _ = os.Remove(tempChecksumFilePath) }()

	if err := os.WriteFile(tempFilePath, marshaledData, 0o644); err != nil {
		return fmt.Errorf("failed to write to temporary data file %s: %w", tempFilePath, err)
	}

	actualChecksum := calculateChecksum(marshaledData)
	if err := os.WriteFile(tempChecksumFilePath, []byte(actualChecksum), 0o644); err != nil {
		return fmt.Errorf("failed to write to temporary checksum file %s: %w", tempChecksumFilePath, err)
	}

	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temporary data file %s to %s: %w", tempFilePath, s.filePath, err)
	}
	if err := os.Rename(tempChecksumFilePath, checksumFilePath); err != nil {
		return fmt.Errorf("CRITICAL: data file %s updated, but failed to update checksum file %s from %s: %w - store may be inconsistent", s.filePath, checksumFilePath, tempChecksumFilePath, err)
	}

	return nil
}

// generateID creates a new universally unique identifier string.
func generateID() string {
	return uuid.NewString()
}

// AddItem inserts a new item, assigning its ID and timestamps.
func (s *FileItemStore) AddItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	if err := s.flk.Lock(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "add", Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	// Reload from disk so concurrent invocations see each other's writes.
	if err := s.loadItemsFromFileInternal(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "add", Err: err}
	}

	if item.ID == "" {
		item.ID = generateID()
	} else if _, exists := s.items[item.ID]; exists {
		return models.MemorizationItem{}, &StoreError{Op: "add", ID: item.ID, Err: fmt.Errorf("item already exists")}
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if !item.Stage.Valid() {
		item.Stage = models.StageBacklog
	}

	if err := models.ValidateStruct(item); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "add", ID: item.ID, Err: err}
	}

	s.items[item.ID] = item

	if err := s.saveItemsToFileInternal(); err != nil {
		_ = s.loadItemsFromFileInternal() // best-effort rollback of in-memory state
		return models.MemorizationItem{}, &StoreError{Op: "add", ID: item.ID, Err: err}
	}
	return item, nil
}

// GetItem retrieves an item by its unique identifier.
func (s *FileItemStore) GetItem(id string) (models.MemorizationItem, error) {
	if err := s.flk.Lock(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "get", ID: id, Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadItemsFromFileInternal(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "get", ID: id, Err: err}
	}

	item, ok := s.items[id]
	if !ok {
		return models.MemorizationItem{}, &StoreError{Op: "get", ID: id, Err: fmt.Errorf("not found")}
	}
	return item, nil
}

// UpdateItem replaces the stored item identified by item.ID.
func (s *FileItemStore) UpdateItem(item models.MemorizationItem) (models.MemorizationItem, error) {
	if err := s.flk.Lock(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "update", ID: item.ID, Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadItemsFromFileInternal(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "update", ID: item.ID, Err: err}
	}

	existing, ok := s.items[item.ID]
	if !ok {
		return models.MemorizationItem{}, &StoreError{Op: "update", ID: item.ID, Err: fmt.Errorf("not found")}
	}

	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	if err := models.ValidateStruct(item); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "update", ID: item.ID, Err: err}
	}

	s.items[item.ID] = item

	if err := s.saveItemsToFileInternal(); err != nil {
		_ = s.loadItemsFromFileInternal()
		return models.MemorizationItem{}, &StoreError{Op: "update", ID: item.ID, Err: err}
	}
	return item, nil
}

// MoveItem reassigns an item to the list for another stage.
func (s *FileItemStore) MoveItem(id string, to models.Stage) (models.MemorizationItem, error) {
	if !to.Valid() {
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: fmt.Errorf("unknown stage %q", to)}
	}

	if err := s.flk.Lock(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadItemsFromFileInternal(); err != nil {
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: err}
	}

	item, ok := s.items[id]
	if !ok {
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: fmt.Errorf("not found")}
	}

	item.Stage = to
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item

	if err := s.saveItemsToFileInternal(); err != nil {
		_ = s.loadItemsFromFileInternal()
		return models.MemorizationItem{}, &StoreError{Op: "move", ID: id, Err: err}
	}
	return item, nil
}

// DeleteItem removes an item from the store.
func (s *FileItemStore) DeleteItem(id string) error {
	if err := s.flk.Lock(); err != nil {
		return &StoreError{Op: "delete", ID: id, Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadItemsFromFileInternal(); err != nil {
		return &StoreError{Op: "delete", ID: id, Err: err}
	}

	if _, ok := s.items[id]; !ok {
		return &StoreError{Op: "delete", ID: id, Err: fmt.Errorf("not found")}
	}
	delete(s.items, id)

	if err := s.saveItemsToFileInternal(); err != nil {
		_ = s.loadItemsFromFileInternal()
		return &StoreError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// ListItems retrieves the items in one stage's list, oldest first.
func (s *FileItemStore) ListItems(stage models.Stage) ([]models.MemorizationItem, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	items := make([]models.MemorizationItem, 0, len(all))
	for _, item := range all {
		if item.Stage == stage {
			items = append(items, item)
		}
	}
	return items, nil
}

// ListAll retrieves every item across all stage lists, oldest first.
func (s *FileItemStore) ListAll() ([]models.MemorizationItem, error) {
	if err := s.flk.Lock(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadItemsFromFileInternal(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	items := make([]models.MemorizationItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Close releases the file lock.
func (s *FileItemStore) Close() error {
	if s.flk != nil {
		return s.flk.Unlock()
	}
	return nil
}
