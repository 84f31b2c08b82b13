package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skgchp/shoveover/internal/domain"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryStore_RecordAndReadBack(t *testing.T) {
	store := openTestStore(t)

	started := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	summary := &domain.RunSummary{
		StartedAt:    started,
		FinishedAt:   started.Add(2 * time.Minute),
		MovedCount:   2,
		TotalFreedKB: 2048,
		FinalFreePct: 31,
		MovedPaths:   []string{"/fast/a/x", "/fast/b/y"},
	}
	moves := []domain.MoveResult{
		{Source: "/fast/a/x", Destination: "/slow/a/x", SizeKB: 1024, Succeeded: true},
		{Source: "/fast/b/y", Destination: "/slow/b/y", SizeKB: 1024, Succeeded: true},
	}

	if err := store.RecordRun(summary, moves); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("RecentRuns() = %d runs, want 1", len(runs))
	}

	r := runs[0]
	if r.MovedCount != 2 || r.TotalFreedKB != 2048 || r.FinalFreePct != 31 {
		t.Errorf("run = %+v", r)
	}
	if !r.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, started)
	}
	if len(r.MovedPaths) != 2 || r.MovedPaths[0] != "/fast/a/x" {
		t.Errorf("MovedPaths = %v", r.MovedPaths)
	}
	if r.DryRun {
		t.Error("DryRun should be false")
	}
}

func TestHistoryStore_RecentRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		summary := &domain.RunSummary{
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			FinishedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
			MovedCount:   i,
			FinalFreePct: 20 + i,
		}
		if err := store.RecordRun(summary, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns(2) = %d runs, want 2", len(runs))
	}
	if runs[0].MovedCount != 2 || runs[1].MovedCount != 1 {
		t.Errorf("order wrong: got moved counts %d, %d", runs[0].MovedCount, runs[1].MovedCount)
	}
}

func TestHistoryStore_DryRunFlag(t *testing.T) {
	store := openTestStore(t)
	summary := &domain.RunSummary{
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		DryRun:     true,
	}
	if err := store.RecordRun(summary, []domain.MoveResult{
		{Source: "/fast/a/x", Destination: "/slow/a/x", SizeKB: 10, Succeeded: true, DryRun: true},
	}); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || !runs[0].DryRun {
		t.Error("dry-run flag should round-trip")
	}
}
