package service

import (
	"context"
	"testing"
	"time"

	"github.com/revanthm1902/task-token-tracker/internal/model"
)

func taskAt(id uint64, title string, updated time.Time) model.Task {
	return model.Task{ID: id, Title: title, UpdatedAt: updated}
}

func TestMergeTaskListsReplacesOlderRows(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	base := []model.Task{taskAt(1, "old", t0), taskAt(2, "keep", t0)}

	merged := MergeTaskLists(base, []model.Task{taskAt(1, "new", t0.Add(time.Minute))})
	if len(merged) != 2 {
		t.Fatalf("length: got %d, want 2", len(merged))
	}
	if merged[0].Title != "new" {
		t.Fatalf("newer incoming row did not replace the cached one")
	}
	if merged[1].Title != "keep" {
		t.Fatalf("untouched row changed")
	}
}

func TestMergeTaskListsKeepsNewerCachedRow(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	base := []model.Task{taskAt(1, "fresh", t0.Add(time.Minute))}

	merged := MergeTaskLists(base, []model.Task{taskAt(1, "stale", t0)})
	if merged[0].Title != "fresh" {
		t.Fatalf("stale incoming row clobbered a newer cached one")
	}
}

func TestMergeTaskListsTieGoesToIncoming(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	base := []model.Task{taskAt(1, "cached", t0)}

	// Equal timestamps: the incoming row is the fresher read.
	merged := MergeTaskLists(base, []model.Task{taskAt(1, "incoming", t0)})
	if merged[0].Title != "incoming" {
		t.Fatalf("tie did not go to the incoming row")
	}
}

func TestMergeTaskListsAppendsNewRows(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	base := []model.Task{taskAt(1, "a", t0)}

	merged := MergeTaskLists(base, []model.Task{taskAt(3, "c", t0), taskAt(2, "b", t0)})
	if len(merged) != 3 {
		t.Fatalf("length: got %d, want 3", len(merged))
	}
	if merged[1].ID != 3 || merged[2].ID != 2 {
		t.Fatalf("new rows not appended in input order: %v %v", merged[1].ID, merged[2].ID)
	}
}

func TestMergeTaskListsDoesNotMutateBase(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	base := []model.Task{taskAt(1, "original", t0)}

	_ = MergeTaskLists(base, []model.Task{taskAt(1, "changed", t0.Add(time.Hour))})
	if base[0].Title != "original" {
		t.Fatalf("merge mutated its input")
	}
}

func TestNilCacheDegradesToMiss(t *testing.T) {
	var c *TaskCache
	if _, ok := c.Get(context.Background(), StaffScope); ok {
		t.Fatalf("nil cache reported a hit")
	}
	// Writes and invalidation on a nil cache must be no-ops, not panics.
	c.Set(context.Background(), StaffScope, nil)
	c.Invalidate(context.Background())
}
