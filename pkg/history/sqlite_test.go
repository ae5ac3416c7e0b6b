package history

import (
	"context"
	"testing"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, "run-1", "provision"); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != RunStatusRunning {
		t.Errorf("expected running status, got %s", runs[0].Status)
	}
	if runs[0].CompletedAt != nil {
		t.Error("unfinished run has a completion time")
	}

	if err := store.FinishRun(ctx, "run-1", RunStatusDone, nil); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	runs, err = store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if runs[0].Status != RunStatusDone {
		t.Errorf("expected done status, got %s", runs[0].Status)
	}
	if runs[0].CompletedAt == nil {
		t.Error("finished run has no completion time")
	}
}

func TestFailedRunKeepsError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, "run-1", "provision"); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	reason := "package install exhausted"
	if err := store.FinishRun(ctx, "run-1", RunStatusFailed, &reason); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if runs[0].Error == nil || *runs[0].Error != reason {
		t.Errorf("failure reason not persisted: %v", runs[0].Error)
	}
}

func TestPhaseRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, "run-1", "provision"); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	phases := []string{"lock_acquired", "os_deps_installed", "preconditions_verified"}
	for _, p := range phases {
		if err := store.RecordPhase(ctx, "run-1", p, "reached", nil); err != nil {
			t.Fatalf("failed to record phase %s: %v", p, err)
		}
	}
	failure := "unit start refused"
	if err := store.RecordPhase(ctx, "run-1", "units_installed", "failed", &failure); err != nil {
		t.Fatalf("failed to record failed phase: %v", err)
	}

	records, err := store.ListPhases(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list phases: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 phase records, got %d", len(records))
	}
	for i, p := range phases {
		if records[i].Phase != p {
			t.Errorf("phase %d: expected %s, got %s", i, p, records[i].Phase)
		}
	}
	last := records[len(records)-1]
	if last.Status != "failed" || last.Error == nil || *last.Error != failure {
		t.Errorf("failed phase not recorded correctly: %+v", last)
	}
}

func TestListRunsHonorsLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateRun(ctx, id, "provision"); err != nil {
			t.Fatalf("failed to create run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}
