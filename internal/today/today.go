package today

import (
	"errors"
	"strings"
	"time"

	"focal-cli/internal/model"
)

var ErrEmptyTitle = errors.New("empty title")

// List is the Today focus list, newest-first. Like the tree, all operations
// are pure and return a new list.
type List []model.TodayItem

// DuplicateHit reports an existing entry that matches the thing being added.
// The caller surfaces the three-way choice: reactivate the hit, force-add a
// second copy anyway, or cancel (do nothing). Reactivation on an active hit
// is a no-op but is still offered for consistency.
type DuplicateHit struct {
	Item model.TodayItem
	// Done mirrors Item.Done at check time so callers can phrase the prompt
	// without re-reading the list.
	Done bool
}

// Propagation asks the session to push a Today-side change down into the
// tree (one-directional: Today -> Tree; the reverse direction is handled by
// reconciliation).
type Propagation struct {
	TaskID    string
	SubtaskID string
	Done      *bool
	Title     *string
}

// AddTask adds a linked snapshot copy of task. If an entry with the same
// (sourceTaskId, no subtask) already exists, nothing is added and the hit is
// returned for the caller to resolve.
func AddTask(l List, task model.Task, projectID, id string, now time.Time) (List, *DuplicateHit) {
	if hit := findLinked(l, task.ID, ""); hit != nil {
		return l, hit
	}
	return prepend(l, snapshotTask(task, projectID, id, now)), nil
}

// AddTaskForced skips the duplicate check ("duplicate anyway").
func AddTaskForced(l List, task model.Task, projectID, id string, now time.Time) List {
	return prepend(l, snapshotTask(task, projectID, id, now))
}

// AddSubtask adds a linked snapshot copy of a subtask, keyed on the
// (sourceTaskId, sourceSubtaskId) pair.
func AddSubtask(l List, sub model.Subtask, parent model.Task, projectID, id string, now time.Time) (List, *DuplicateHit) {
	if hit := findLinked(l, parent.ID, sub.ID); hit != nil {
		return l, hit
	}
	return prepend(l, snapshotSubtask(sub, parent, projectID, id, now)), nil
}

// AddSubtaskForced skips the duplicate check.
func AddSubtaskForced(l List, sub model.Subtask, parent model.Task, projectID, id string, now time.Time) List {
	return prepend(l, snapshotSubtask(sub, parent, projectID, id, now))
}

// AddStandalone adds a freestanding text item. The duplicate check keys on
// exact (case-sensitive) title match among standalone items only.
func AddStandalone(l List, title, id string, now time.Time) (List, *DuplicateHit, error) {
	if strings.TrimSpace(title) == "" {
		return l, nil, ErrEmptyTitle
	}
	for i := range l {
		if l[i].IsLocal && l[i].Title == title {
			return l, &DuplicateHit{Item: l[i], Done: l[i].Done}, nil
		}
	}
	it := model.TodayItem{
		ID:        id,
		Title:     title,
		IsLocal:   true,
		CreatedAt: now,
	}
	return prepend(l, it), nil, nil
}

// AddStandaloneForced skips the duplicate check.
func AddStandaloneForced(l List, title, id string, now time.Time) (List, error) {
	if strings.TrimSpace(title) == "" {
		return l, ErrEmptyTitle
	}
	return prepend(l, model.TodayItem{ID: id, Title: title, IsLocal: true, CreatedAt: now}), nil
}

// Reactivate clears an item's done flag in place ("reactivate" choice of the
// duplicate prompt): no new row, position unchanged apart from the partition
// re-sort. Unknown id is a no-op.
func Reactivate(l List, id string, now time.Time) List {
	i := indexOf(l, id)
	if i < 0 || !l[i].Done {
		return l
	}
	out := clone(l)
	out[i].Done = false
	out[i].DoneAt = nil
	return partition(out)
}

// ToggleDone flips an item's own completion flag and re-sorts so active items
// stay strictly above completed items, preserving relative order within each
// partition. For linked copies it also returns the propagation request for
// the underlying task/subtask.
func ToggleDone(l List, id string, now time.Time) (List, *Propagation) {
	i := indexOf(l, id)
	if i < 0 {
		return l, nil
	}
	out := clone(l)
	it := &out[i]
	it.Done = !it.Done
	if it.Done {
		at := now
		it.DoneAt = &at
	} else {
		it.DoneAt = nil
	}

	var prop *Propagation
	if it.Linked() {
		done := it.Done
		prop = &Propagation{TaskID: it.SourceTaskID, SubtaskID: it.SourceSubtaskID, Done: &done}
	}
	return partition(out), prop
}

// Rename retitles an item. For linked copies it also returns the best-effort
// tree propagation; a failed propagation is reported to the caller and does
// not undo the local rename.
func Rename(l List, id, title string) (List, *Propagation, error) {
	if strings.TrimSpace(title) == "" {
		return l, nil, ErrEmptyTitle
	}
	i := indexOf(l, id)
	if i < 0 {
		return l, nil, nil
	}
	out := clone(l)
	out[i].Title = title

	var prop *Propagation
	if out[i].Linked() {
		t := title
		prop = &Propagation{TaskID: out[i].SourceTaskID, SubtaskID: out[i].SourceSubtaskID, Title: &t}
	}
	return out, prop, nil
}

// Remove drops the given ids. Unknown ids are ignored.
func Remove(l List, ids []string) List {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make(List, 0, len(l))
	for _, it := range l {
		if !drop[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Duplicate copies the given items with fresh ids, reset completion and
// creation time, prepending the copies (newest-first). The source tree is
// never touched. newID is called once per copy.
func Duplicate(l List, ids []string, newID func() string, now time.Time) List {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var copies List
	for _, it := range l {
		if !want[it.ID] {
			continue
		}
		dup := it
		dup.ID = newID()
		dup.Done = false
		dup.DoneAt = nil
		dup.CreatedAt = now
		copies = append(copies, dup)
	}
	out := make(List, 0, len(copies)+len(l))
	out = append(out, copies...)
	out = append(out, l...)
	return out
}

// Reorder moves the item at from to position to. Out-of-range indexes are a
// no-op.
func Reorder(l List, from, to int) List {
	if from < 0 || from >= len(l) || to < 0 || to >= len(l) || from == to {
		return l
	}
	out := clone(l)
	it := out[from]
	out = append(out[:from], out[from+1:]...)
	rest := make(List, 0, len(l))
	rest = append(rest, out[:to]...)
	rest = append(rest, it)
	rest = append(rest, out[to:]...)
	return rest
}

// SyncFromTree refreshes linked copies after a reconciliation merge: done
// flags follow the source (Tree -> Today direction), and copies whose source
// vanished become standalone rather than dangling.
func SyncFromTree(l List, lookupTask func(id string) (model.Task, bool), lookupSubtask func(taskID, subID string) (model.Subtask, bool)) List {
	out := clone(l)
	for i := range out {
		it := &out[i]
		if !it.Linked() {
			continue
		}
		if it.SourceSubtaskID != "" {
			sub, ok := lookupSubtask(it.SourceTaskID, it.SourceSubtaskID)
			if !ok {
				it.IsLocal = true
				it.SourceTaskID = ""
				it.SourceSubtaskID = ""
				continue
			}
			it.Done = sub.Completed
			continue
		}
		task, ok := lookupTask(it.SourceTaskID)
		if !ok {
			it.IsLocal = true
			it.SourceTaskID = ""
			continue
		}
		it.Done = task.Completed
	}
	return partition(out)
}

func snapshotTask(task model.Task, projectID, id string, now time.Time) model.TodayItem {
	return model.TodayItem{
		ID:           id,
		Title:        task.Title,
		SourceTaskID: task.ID,
		ProjectID:    projectID,
		Tags:         append([]string(nil), task.Tags...),
		CreatedAt:    now,
	}
}

func snapshotSubtask(sub model.Subtask, parent model.Task, projectID, id string, now time.Time) model.TodayItem {
	return model.TodayItem{
		ID:              id,
		Title:           sub.Title,
		SourceTaskID:    parent.ID,
		SourceSubtaskID: sub.ID,
		ProjectID:       projectID,
		Tags:            append([]string(nil), sub.Tags...),
		CreatedAt:       now,
	}
}

// findLinked returns the first active-or-done entry matching the
// (sourceTaskId, sourceSubtaskId) pair. Active copies are preferred so
// "reactivate" targets the one the user is most likely looking at.
func findLinked(l List, taskID, subtaskID string) *DuplicateHit {
	var done *model.TodayItem
	for i := range l {
		it := &l[i]
		if it.IsLocal || it.SourceTaskID != taskID || it.SourceSubtaskID != subtaskID {
			continue
		}
		if !it.Done {
			return &DuplicateHit{Item: *it, Done: false}
		}
		if done == nil {
			done = it
		}
	}
	if done != nil {
		return &DuplicateHit{Item: *done, Done: true}
	}
	return nil
}

// partition keeps active items strictly above completed items without
// disturbing relative order inside either group.
func partition(l List) List {
	out := make(List, 0, len(l))
	for _, it := range l {
		if !it.Done {
			out = append(out, it)
		}
	}
	for _, it := range l {
		if it.Done {
			out = append(out, it)
		}
	}
	return out
}

func prepend(l List, it model.TodayItem) List {
	out := make(List, 0, len(l)+1)
	out = append(out, it)
	out = append(out, l...)
	return out
}

func indexOf(l List, id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(l List) List {
	out := make(List, len(l))
	copy(out, l)
	return out
}
