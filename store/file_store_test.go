package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/versekeeper/versekeeper/models"
	"github.com/versekeeper/versekeeper/scripture"
)

// setupTestStore initializes a FileItemStore in a temp directory.
func setupTestStore(t *testing.T, format string) (*FileItemStore, string) {
	t.Helper()
	tempDir := t.TempDir()
	dataFile := filepath.Join(tempDir, "verses."+format)

	s := NewFileItemStore()
	err := s.Initialize(map[string]string{
		dataFileKey:       dataFile,
		dataFileFormatKey: format,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, dataFile
}

func newTestItem(book string, chapter, start int) models.MemorizationItem {
	return models.NewItem(scripture.Reference{Book: book, Chapter: chapter, Start: start, End: start})
}

func TestFileStoreAddAndGet(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	added, err := s.AddItem(newTestItem("2 Nephi", 2, 25))
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if added.ID == "" {
		t.Fatal("AddItem did not assign an ID")
	}
	if added.Stage != models.StageBacklog {
		t.Errorf("new item stage = %s, want backlog", added.Stage)
	}

	got, err := s.GetItem(added.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Reference.Key() != added.Reference.Key() {
		t.Errorf("got reference %s, want %s", got.Reference, added.Reference)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	_, err := s.GetItem("3f0c8d8a-0000-4000-8000-000000000000")
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	var serr *StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("got %T, want *StoreError", err)
	}
	if serr.Op != "get" {
		t.Errorf("op = %q, want get", serr.Op)
	}
}

func TestFileStoreUpdate(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	added, err := s.AddItem(newTestItem("John", 3, 16))
	if err != nil {
		t.Fatal(err)
	}

	added.Notes = "For God so loved the world..."
	added.Completed = true
	updated, err := s.UpdateItem(added)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if !updated.Completed || updated.Notes == "" {
		t.Error("update did not persist fields")
	}
	if !updated.CreatedAt.Equal(added.CreatedAt) {
		t.Error("update must preserve CreatedAt")
	}

	got, err := s.GetItem(added.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Completed {
		t.Error("completed flag lost on reload")
	}
}

func TestFileStoreMove(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	added, err := s.AddItem(newTestItem("Mosiah", 2, 17))
	if err != nil {
		t.Fatal(err)
	}

	moved, err := s.MoveItem(added.ID, models.StageDaily)
	if err != nil {
		t.Fatalf("MoveItem failed: %v", err)
	}
	if moved.Stage != models.StageDaily {
		t.Errorf("stage = %s, want daily", moved.Stage)
	}

	if _, err := s.MoveItem(added.ID, "someday"); err == nil {
		t.Error("expected error moving to unknown stage")
	}

	daily, err := s.ListItems(models.StageDaily)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 1 {
		t.Errorf("daily list has %d items, want 1", len(daily))
	}
	backlog, err := s.ListItems(models.StageBacklog)
	if err != nil {
		t.Fatal(err)
	}
	if len(backlog) != 0 {
		t.Errorf("backlog still has %d items, want 0", len(backlog))
	}
}

func TestFileStoreDelete(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	added, err := s.AddItem(newTestItem("Alma", 32, 21))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteItem(added.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, err := s.GetItem(added.ID); err == nil {
		t.Error("item still present after delete")
	}
	if err := s.DeleteItem(added.ID); err == nil {
		t.Error("expected error deleting missing item")
	}
}

func TestFileStoreListAllSortsByCreation(t *testing.T) {
	s, _ := setupTestStore(t, "json")

	first, err := s.AddItem(newTestItem("1 Nephi", 3, 7))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.AddItem(newTestItem("Ether", 12, 27))
	if err != nil {
		t.Fatal(err)
	}

	all, err := s.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d items, want 2", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID {
		t.Error("items not sorted oldest first")
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	s, dataFile := setupTestStore(t, "json")

	added, err := s.AddItem(newTestItem("Moroni", 10, 4))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := NewFileItemStore()
	if err := reopened.Initialize(map[string]string{dataFileKey: dataFile}); err != nil {
		t.Fatalf("re-Initialize failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetItem(added.ID)
	if err != nil {
		t.Fatalf("GetItem after reopen failed: %v", err)
	}
	if got.Reference.Key() != added.Reference.Key() {
		t.Errorf("got %s, want %s", got.Reference, added.Reference)
	}
}

func TestFileStoreChecksumMismatch(t *testing.T) {
	s, dataFile := setupTestStore(t, "json")

	if _, err := s.AddItem(newTestItem("Helaman", 5, 12)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Tamper with the data file without updating the sidecar.
	if err := os.WriteFile(dataFile, []byte(`{"items":[],"totalCount":0}`), 0o644); err != nil {
		t.Fatal(err)
	}

	reopened := NewFileItemStore()
	err := reopened.Initialize(map[string]string{dataFileKey: dataFile})
	if err == nil {
		_ = reopened.Close()
		t.Fatal("expected checksum mismatch error")
	}
}

func TestFileStoreYAMLFormat(t *testing.T) {
	s, _ := setupTestStore(t, "yaml")

	added, err := s.AddItem(newTestItem("Proverbs", 3, 5))
	if err != nil {
		t.Fatalf("AddItem in yaml store failed: %v", err)
	}
	got, err := s.GetItem(added.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Reference.Book != "Proverbs" {
		t.Errorf("book = %q, want Proverbs", got.Reference.Book)
	}
}

func TestFileStoreRejectsUnknownFormat(t *testing.T) {
	s := NewFileItemStore()
	err := s.Initialize(map[string]string{
		dataFileKey:       filepath.Join(t.TempDir(), "verses.xml"),
		dataFileFormatKey: "xml",
	})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
