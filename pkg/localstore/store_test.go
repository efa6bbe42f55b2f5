package localstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testRecord(collection, id string, data map[string]any) *Record {
	return &Record{
		ID:         id,
		Collection: collection,
		Data:       data,
		UpdatedAt:  time.Now(),
	}
}

func TestPutGet(t *testing.T) {
	ms := NewMemoryStore()

	if err := ms.Put(testRecord("skills", "1", map[string]any{"name": "Rust"})); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record, err := ms.Get("skills", "1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Data["name"] != "Rust" {
		t.Errorf("expected Rust, got %v", record.Data["name"])
	}

	if _, err := ms.Get("skills", "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ms.Get("projects", "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for absent collection, got %v", err)
	}
}

func TestReturnedRecordIsACopy(t *testing.T) {
	ms := NewMemoryStore()
	ms.Put(testRecord("skills", "1", map[string]any{"name": "Rust"}))

	record, _ := ms.Get("skills", "1")
	record.Data["name"] = "mutated"

	fresh, _ := ms.Get("skills", "1")
	if fresh.Data["name"] != "Rust" {
		t.Error("store internals leaked through returned record")
	}
}

func TestDelete(t *testing.T) {
	ms := NewMemoryStore()
	ms.Put(testRecord("skills", "1", nil))

	if err := ms.Delete("skills", "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := ms.Get("skills", "1"); !errors.Is(err, ErrNotFound) {
		t.Error("record still present after delete")
	}

	// Deleting an absent record is a no-op
	if err := ms.Delete("skills", "missing"); err != nil {
		t.Errorf("deleting absent record should not fail: %v", err)
	}
}

func TestListOrderedByUpdatedAt(t *testing.T) {
	ms := NewMemoryStore()

	base := time.Now()
	for i, id := range []string{"c", "a", "b"} {
		record := testRecord("skills", id, nil)
		record.UpdatedAt = base.Add(time.Duration(i) * time.Second)
		ms.Put(record)
	}

	records, err := ms.List("skills")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []string{"c", "a", "b"} // insertion order == UpdatedAt order here
	for i, record := range records {
		if record.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], record.ID)
		}
	}
}

func TestCollections(t *testing.T) {
	ms := NewMemoryStore()
	ms.Put(testRecord("skills", "1", nil))
	ms.Put(testRecord("projects", "1", nil))

	names, err := ms.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(names) != 2 || names[0] != "projects" || names[1] != "skills" {
		t.Errorf("unexpected collections: %v", names)
	}
}

func TestClosedStore(t *testing.T) {
	ms := NewMemoryStore()
	ms.Close()

	if err := ms.Put(testRecord("skills", "1", nil)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
	if _, err := ms.Get("skills", "1"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestStale(t *testing.T) {
	now := time.Now()

	unconfirmed := &Record{}
	if !unconfirmed.Stale(time.Minute, now) {
		t.Error("never-confirmed record must be stale")
	}

	fresh := &Record{LastConfirmedAt: now.Add(-30 * time.Second)}
	if fresh.Stale(time.Minute, now) {
		t.Error("recently confirmed record must not be stale")
	}

	old := &Record{LastConfirmedAt: now.Add(-2 * time.Minute)}
	if !old.Stale(time.Minute, now) {
		t.Error("old confirmation must be stale")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.snap")

	ms := NewMemoryStore()
	ms.Put(testRecord("skills", "1", map[string]any{"name": "Rust", "level": "beginner"}))
	ms.Put(testRecord("projects", "p1", map[string]any{"title": "Portfolio"}))

	if err := SaveSnapshot(ms, path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored := NewMemoryStore()
	if err := LoadSnapshot(restored, path); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	record, err := restored.Get("skills", "1")
	if err != nil {
		t.Fatalf("restored Get failed: %v", err)
	}
	if record.Data["name"] != "Rust" {
		t.Errorf("expected Rust, got %v", record.Data["name"])
	}

	if _, err := restored.Get("projects", "p1"); err != nil {
		t.Errorf("projects record missing after restore: %v", err)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	ms := NewMemoryStore()
	if err := LoadSnapshot(ms, filepath.Join(t.TempDir(), "absent.snap")); err != nil {
		t.Errorf("missing snapshot should not be an error: %v", err)
	}
}
