package markers

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFSStore_HasBeforeRecord(t *testing.T) {
	store := NewFSStore(t.TempDir())

	has, err := store.Has("bootstrap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Error("marker reported present before Record")
	}
}

func TestFSStore_RecordThenHas(t *testing.T) {
	store := NewFSStore(t.TempDir())

	if err := store.Record("bootstrap"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	has, err := store.Has("bootstrap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("marker missing after Record")
	}

	// Other phases are unaffected.
	has, err = store.Has("other-phase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has {
		t.Error("unrelated phase reported complete")
	}
}

func TestFSStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "var", "lib", "markers")
	store := NewFSStore(dir)

	if err := store.Record("bootstrap"); err != nil {
		t.Fatalf("failed to record in missing directory: %v", err)
	}

	has, err := store.Has("bootstrap")
	if err != nil || !has {
		t.Fatalf("marker missing after Record (has=%v, err=%v)", has, err)
	}
}

func TestFSStore_CompletedAt(t *testing.T) {
	store := NewFSStore(t.TempDir())
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.Record("bootstrap"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	ts, err := store.CompletedAt("bootstrap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ts.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, ts)
	}

	ts, err = store.CompletedAt("missing")
	if err != nil {
		t.Fatalf("unexpected error for missing marker: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time for missing marker, got %v", ts)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	has, _ := store.Has("bootstrap")
	if has {
		t.Error("marker present before Record")
	}

	if err := store.Record("bootstrap"); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	has, _ = store.Has("bootstrap")
	if !has {
		t.Error("marker missing after Record")
	}
}
