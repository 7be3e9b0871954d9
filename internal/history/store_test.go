package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecall(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.RecordStart(ctx, "job-1", "/srv/ws1", "qcprot", "worker")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordResult(ctx, id, OutcomeCompleted, 0, true, nil); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.JobID != "job-1" || entry.Workflow != "qcprot" || entry.ExecuteAs != "worker" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Outcome != OutcomeCompleted || !entry.Delivered {
		t.Fatalf("terminal state not recorded: %+v", entry)
	}
	if entry.StartedAt.IsZero() || entry.FinishedAt.IsZero() {
		t.Fatalf("timestamps missing: %+v", entry)
	}
}

func TestRecordFailureKeepsError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.RecordStart(ctx, "job-2", "/srv/ws2", "flow", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordResult(ctx, id, OutcomeFailed, 3, false, errors.New("exit 3")); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].ExitCode != 3 || entries[0].Error != "exit 3" || entries[0].Delivered {
		t.Fatalf("failure not recorded correctly: %+v", entries[0])
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, job := range []string{"a", "b", "c"} {
		if _, err := store.RecordStart(ctx, job, "/srv/ws", "flow", ""); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit ignored, got %d entries", len(entries))
	}
	if entries[0].JobID != "c" {
		t.Fatalf("expected newest first, got %q", entries[0].JobID)
	}
}

func TestMarkDeliveredTargetsLatestRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.RecordStart(ctx, "job-1", "/srv/ws", "flow", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.RecordStart(ctx, "job-2", "/srv/ws", "flow", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkDelivered(ctx, "/srv/ws", "flow"); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		switch entry.JobID {
		case "job-2":
			if !entry.Delivered {
				t.Fatal("latest run not marked delivered")
			}
		case "job-1":
			if entry.Delivered {
				t.Fatalf("older run %d marked delivered", first)
			}
		}
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.RecordStart(context.Background(), "job", "/ws", "flow", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("journal lost entries on reopen: %d", len(entries))
	}
}
