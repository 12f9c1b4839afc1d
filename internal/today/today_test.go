package today

import (
	"fmt"
	"testing"
	"time"

	"focal-cli/internal/model"
)

var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func task(id, title string) model.Task {
	return model.Task{ID: id, Title: title, Tags: []string{"tag-1"}}
}

func TestAddTaskNotYetLinked(t *testing.T) {
	l := List{{ID: "it-0", Title: "existing", IsLocal: true, CreatedAt: now}}

	out, hit := AddTask(l, task("T1", "Sequence samples"), "proj-1", "it-1", now)
	if hit != nil {
		t.Fatalf("unexpected duplicate hit: %+v", hit)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].SourceTaskID != "T1" {
		t.Fatalf("item[0].sourceTaskId = %q, want T1", out[0].SourceTaskID)
	}
	if out[0].Title != "Sequence samples" || out[0].Done {
		t.Fatalf("item[0] = %+v", out[0])
	}
	// Snapshot copies the tags, it does not alias the source slice.
	if len(out[0].Tags) != 1 || out[0].Tags[0] != "tag-1" {
		t.Fatalf("tags = %v", out[0].Tags)
	}
}

func TestAddTaskDuplicateReturnsHit(t *testing.T) {
	l, _ := AddTask(nil, task("T1", "Sequence samples"), "proj-1", "it-1", now)

	out, hit := AddTask(l, task("T1", "Sequence samples"), "proj-1", "it-2", now)
	if hit == nil {
		t.Fatalf("expected a duplicate hit")
	}
	if hit.Item.ID != "it-1" || hit.Done {
		t.Fatalf("hit = %+v", hit)
	}
	if len(out) != 1 {
		t.Fatalf("list changed on duplicate: len = %d", len(out))
	}
}

func TestAddTaskForcedYieldsTwoCopies(t *testing.T) {
	l, _ := AddTask(nil, task("T1", "Sequence samples"), "proj-1", "it-1", now)
	out := AddTaskForced(l, task("T1", "Sequence samples"), "proj-1", "it-2", now)

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].SourceTaskID != "T1" || out[1].SourceTaskID != "T1" {
		t.Fatalf("both copies should link T1: %+v", out)
	}
	if out[0].ID == out[1].ID {
		t.Fatalf("copies share an id")
	}
}

func TestDuplicateHitPrefersActiveCopy(t *testing.T) {
	l, _ := AddTask(nil, task("T1", "a"), "p", "it-done", now)
	l, _ = ToggleDone(l, "it-done", now)
	l = AddTaskForced(l, task("T1", "a"), "p", "it-active", now)

	_, hit := AddTask(l, task("T1", "a"), "p", "it-3", now)
	if hit == nil || hit.Item.ID != "it-active" || hit.Done {
		t.Fatalf("hit = %+v, want active copy it-active", hit)
	}
}

func TestReactivateClearsDoneWithoutNewRow(t *testing.T) {
	l, _ := AddTask(nil, task("T1", "a"), "p", "it-1", now)
	l, _ = ToggleDone(l, "it-1", now)
	if !l[0].Done {
		t.Fatalf("toggle did not complete the item")
	}

	out := Reactivate(l, "it-1", now)
	if len(out) != 1 {
		t.Fatalf("reactivate added a row: len = %d", len(out))
	}
	if out[0].Done || out[0].DoneAt != nil {
		t.Fatalf("item still done: %+v", out[0])
	}

	// Reactivating an already-active item is a no-op.
	again := Reactivate(out, "it-1", now)
	if len(again) != 1 || again[0].Done {
		t.Fatalf("reactivate on active item changed it: %+v", again[0])
	}
}

func TestAddSubtaskKeyedOnPair(t *testing.T) {
	parent := task("T1", "parent")
	sub := model.Subtask{ID: "S1", Title: "step one"}

	l, hit := AddSubtask(nil, sub, parent, "p", "it-1", now)
	if hit != nil {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	// Same parent task, different subtask: no duplicate.
	l, hit = AddSubtask(l, model.Subtask{ID: "S2", Title: "step two"}, parent, "p", "it-2", now)
	if hit != nil {
		t.Fatalf("distinct subtask flagged as duplicate: %+v", hit)
	}
	// Same pair: duplicate.
	_, hit = AddSubtask(l, sub, parent, "p", "it-3", now)
	if hit == nil || hit.Item.ID != "it-1" {
		t.Fatalf("hit = %+v", hit)
	}
	// A task copy of T1 does not collide with subtask copies.
	_, hit = AddTask(l, parent, "p", "it-4", now)
	if hit != nil {
		t.Fatalf("task add collided with subtask copies: %+v", hit)
	}
}

func TestAddStandaloneExactTitleMatch(t *testing.T) {
	l, hit, err := AddStandalone(nil, "buy buffer", "it-1", now)
	if err != nil || hit != nil {
		t.Fatalf("err=%v hit=%+v", err, hit)
	}

	// Case differs: no duplicate.
	l, hit, err = AddStandalone(l, "Buy buffer", "it-2", now)
	if err != nil || hit != nil {
		t.Fatalf("case-differing title flagged: err=%v hit=%+v", err, hit)
	}

	_, hit, err = AddStandalone(l, "buy buffer", "it-3", now)
	if err != nil || hit == nil || hit.Item.ID != "it-1" {
		t.Fatalf("err=%v hit=%+v", err, hit)
	}

	if _, _, err := AddStandalone(l, "   ", "it-4", now); err != ErrEmptyTitle {
		t.Fatalf("blank title err = %v", err)
	}
}

func TestToggleDonePartitionsAndPropagates(t *testing.T) {
	l, _, _ := AddStandalone(nil, "c", "it-c", now)
	l = AddTaskForced(l, task("T1", "b"), "p", "it-b", now)
	l, _, _ = AddStandalone(l, "a", "it-a", now)
	// Order: it-a, it-b, it-c.

	out, prop := ToggleDone(l, "it-b", now)
	if prop == nil || prop.TaskID != "T1" || prop.Done == nil || !*prop.Done {
		t.Fatalf("propagation = %+v", prop)
	}
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	if ids[0] != "it-a" || ids[1] != "it-c" || ids[2] != "it-b" {
		t.Fatalf("order after toggle = %v", ids)
	}
	if out[2].DoneAt == nil || !out[2].DoneAt.Equal(now) {
		t.Fatalf("doneAt = %v", out[2].DoneAt)
	}

	// Untoggle: item is active again, DoneAt cleared.
	out, prop = ToggleDone(out, "it-b", now)
	if prop == nil || *prop.Done {
		t.Fatalf("untoggle propagation = %+v", prop)
	}
	if out[2].ID != "it-b" || out[2].Done || out[2].DoneAt != nil {
		t.Fatalf("untoggled item = %+v", out[2])
	}

	// Standalone toggle propagates nothing.
	_, prop = ToggleDone(l, "it-a", now)
	if prop != nil {
		t.Fatalf("standalone item propagated: %+v", prop)
	}
}

func TestRenamePropagatesForLinkedOnly(t *testing.T) {
	l := AddTaskForced(nil, task("T1", "old"), "p", "it-1", now)
	out, prop, err := Rename(l, "it-1", "new")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if out[0].Title != "new" {
		t.Fatalf("title = %q", out[0].Title)
	}
	if prop == nil || prop.TaskID != "T1" || prop.Title == nil || *prop.Title != "new" {
		t.Fatalf("propagation = %+v", prop)
	}

	l2, _, _ := AddStandalone(nil, "x", "it-2", now)
	_, prop, _ = Rename(l2, "it-2", "y")
	if prop != nil {
		t.Fatalf("standalone rename propagated: %+v", prop)
	}

	if _, _, err := Rename(l, "it-1", " "); err != ErrEmptyTitle {
		t.Fatalf("blank rename err = %v", err)
	}
}

func TestDuplicateCopiesResetState(t *testing.T) {
	l := AddTaskForced(nil, task("T1", "a"), "p", "it-1", now)
	l, _ = ToggleDone(l, "it-1", now)

	later := now.Add(time.Hour)
	out := Duplicate(l, []string{"it-1"}, seqIDs("dup"), later)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	dup := out[0]
	if dup.ID != "dup-1" || dup.Done || dup.DoneAt != nil || !dup.CreatedAt.Equal(later) {
		t.Fatalf("copy = %+v", dup)
	}
	if dup.SourceTaskID != "T1" {
		t.Fatalf("copy lost its link: %+v", dup)
	}
	if !out[1].Done {
		t.Fatalf("original mutated: %+v", out[1])
	}
}

func TestRemoveAndReorder(t *testing.T) {
	var l List
	for _, id := range []string{"c", "b", "a"} {
		l, _, _ = AddStandalone(l, id, "it-"+id, now)
	}
	// Order: it-a, it-b, it-c.

	out := Remove(l, []string{"it-b", "it-missing"})
	if len(out) != 2 || out[0].ID != "it-a" || out[1].ID != "it-c" {
		t.Fatalf("after remove = %+v", out)
	}

	out = Reorder(l, 0, 2)
	if out[0].ID != "it-b" || out[1].ID != "it-c" || out[2].ID != "it-a" {
		t.Fatalf("after reorder = %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
	if same := Reorder(l, 0, 9); len(same) != 3 || same[0].ID != "it-a" {
		t.Fatalf("out-of-range reorder changed the list")
	}
}

func TestSyncFromTree(t *testing.T) {
	l := AddTaskForced(nil, task("T1", "alive"), "p", "it-1", now)
	l = AddTaskForced(l, task("T2", "gone"), "p", "it-2", now)
	l = AddSubtaskForced(l, model.Subtask{ID: "S1", Title: "s"}, task("T1", "alive"), "p", "it-3", now)

	out := SyncFromTree(l,
		func(id string) (model.Task, bool) {
			if id == "T1" {
				return model.Task{ID: "T1", Completed: true}, true
			}
			return model.Task{}, false
		},
		func(taskID, subID string) (model.Subtask, bool) {
			return model.Subtask{}, false
		})

	byID := map[string]model.TodayItem{}
	for _, it := range out {
		byID[it.ID] = it
	}
	if !byID["it-1"].Done {
		t.Fatalf("linked copy did not follow source completion: %+v", byID["it-1"])
	}
	if orphan := byID["it-2"]; !orphan.IsLocal || orphan.SourceTaskID != "" {
		t.Fatalf("orphaned task copy not converted to standalone: %+v", orphan)
	}
	if orphan := byID["it-3"]; !orphan.IsLocal || orphan.SourceTaskID != "" || orphan.SourceSubtaskID != "" {
		t.Fatalf("orphaned subtask copy not converted: %+v", orphan)
	}
	// Done items sank below active ones.
	if out[len(out)-1].ID != "it-1" {
		t.Fatalf("partition order = %+v", out)
	}
}
