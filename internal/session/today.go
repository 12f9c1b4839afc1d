package session

import (
	"context"

	"focal-cli/internal/model"
	"focal-cli/internal/today"
	"focal-cli/internal/tree"
)

// Today list operations. The duplicate-check protocol surfaces a
// *today.DuplicateHit to the caller instead of deciding: the caller offers
// reactivate / duplicate-anyway / cancel and comes back through
// TodayReactivate or the *Forced variant.

func (s *Session) TodayAddTask(taskID string) (*model.TodayItem, *today.DuplicateHit, error) {
	now := s.now()
	s.mu.Lock()
	path, task, ok := tree.FindTask(s.tree, taskID)
	if !ok {
		s.mu.Unlock()
		return nil, nil, nil
	}
	prev := s.todayList
	next, hit := today.AddTask(prev, task, path.ProjectID, s.newID("tdy"), now)
	if hit != nil {
		s.mu.Unlock()
		return nil, hit, nil
	}
	s.todayList = next
	added := next[0]
	s.mu.Unlock()

	s.persistToday(prev, now)
	return &added, nil, nil
}

func (s *Session) TodayAddTaskForced(taskID string) (*model.TodayItem, error) {
	now := s.now()
	s.mu.Lock()
	path, task, ok := tree.FindTask(s.tree, taskID)
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	prev := s.todayList
	s.todayList = today.AddTaskForced(prev, task, path.ProjectID, s.newID("tdy"), now)
	added := s.todayList[0]
	s.mu.Unlock()

	s.persistToday(prev, now)
	return &added, nil
}

func (s *Session) TodayAddSubtask(taskID, subtaskID string) (*model.TodayItem, *today.DuplicateHit, error) {
	now := s.now()
	s.mu.Lock()
	path, sub, ok := tree.FindSubtask(s.tree, taskID, subtaskID)
	if !ok {
		s.mu.Unlock()
		return nil, nil, nil
	}
	_, task, _ := tree.FindTask(s.tree, taskID)
	prev := s.todayList
	next, hit := today.AddSubtask(prev, sub, task, path.ProjectID, s.newID("tdy"), now)
	if hit != nil {
		s.mu.Unlock()
		return nil, hit, nil
	}
	s.todayList = next
	added := next[0]
	s.mu.Unlock()

	s.persistToday(prev, now)
	return &added, nil, nil
}

func (s *Session) TodayAddSubtaskForced(taskID, subtaskID string) (*model.TodayItem, error) {
	now := s.now()
	s.mu.Lock()
	path, sub, ok := tree.FindSubtask(s.tree, taskID, subtaskID)
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	_, task, _ := tree.FindTask(s.tree, taskID)
	prev := s.todayList
	s.todayList = today.AddSubtaskForced(prev, sub, task, path.ProjectID, s.newID("tdy"), now)
	added := s.todayList[0]
	s.mu.Unlock()

	s.persistToday(prev, now)
	return &added, nil
}

func (s *Session) TodayAddStandalone(title string, forced bool) (*model.TodayItem, *today.DuplicateHit, error) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	var next today.List
	var hit *today.DuplicateHit
	var err error
	if forced {
		next, err = today.AddStandaloneForced(prev, title, s.newID("tdy"), now)
	} else {
		next, hit, err = today.AddStandalone(prev, title, s.newID("tdy"), now)
	}
	if err != nil || hit != nil {
		s.mu.Unlock()
		return nil, hit, err
	}
	s.todayList = next
	added := next[0]
	s.mu.Unlock()

	s.persistToday(prev, now)
	return &added, nil, nil
}

// TodayReactivate resolves a duplicate prompt with "reactivate": the
// existing entry's done flag is cleared, no new row appears.
func (s *Session) TodayReactivate(itemID string) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	s.todayList = today.Reactivate(prev, itemID, now)
	s.mu.Unlock()
	s.persistToday(prev, now)
}

// TodayToggle flips the item's own done flag and, for linked copies,
// propagates the completion to the source task/subtask (Today -> Tree; the
// reverse direction happens in reconciliation, not here).
func (s *Session) TodayToggle(itemID string) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	next, prop := today.ToggleDone(prev, itemID, now)
	s.todayList = next
	s.mu.Unlock()

	s.persistToday(prev, now)
	s.propagate(prop)
}

func (s *Session) TodayRemove(ids ...string) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	s.todayList = today.Remove(prev, ids)
	s.mu.Unlock()
	s.persistToday(prev, now)
}

func (s *Session) TodayDuplicate(ids ...string) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	s.todayList = today.Duplicate(prev, ids, func() string { return s.newID("tdy") }, now)
	s.mu.Unlock()
	s.persistToday(prev, now)
}

func (s *Session) TodayReorder(from, to int) {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	s.todayList = today.Reorder(prev, from, to)
	s.mu.Unlock()
	s.persistToday(prev, now)
}

// TodayRename renames the item; linked copies best-effort propagate the new
// title to the source. A failed propagation is reported via notice and does
// not undo the local rename.
func (s *Session) TodayRename(itemID, title string) error {
	now := s.now()
	s.mu.Lock()
	prev := s.todayList
	next, prop, err := today.Rename(prev, itemID, title)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.todayList = next
	s.mu.Unlock()

	s.persistToday(prev, now)
	s.propagate(prop)
	return nil
}

// propagate pushes a Today-side change into the tree through the store's
// own mutator contract.
func (s *Session) propagate(prop *today.Propagation) {
	if prop == nil {
		return
	}
	now := s.now()

	s.mu.Lock()
	var (
		ok   bool
		kind model.EntityKind
		id   string
	)
	patch := tree.Patch{Completed: prop.Done, Title: prop.Title}
	if prop.SubtaskID != "" {
		var path tree.Path
		path, _, ok = tree.FindSubtask(s.tree, prop.TaskID, prop.SubtaskID)
		if ok {
			s.tree, _ = tree.Apply(s.tree, path, patch, s.actor(), now)
		}
		kind, id = model.KindSubtask, prop.SubtaskID
	} else {
		var path tree.Path
		path, _, ok = tree.FindTask(s.tree, prop.TaskID)
		if ok {
			s.tree, _ = tree.Apply(s.tree, path, patch, s.actor(), now)
		}
		kind, id = model.KindTask, prop.TaskID
	}
	s.mu.Unlock()

	if !ok {
		// Source concurrently deleted: benign no-op.
		return
	}
	s.dispatch("update linked item", func(ctx context.Context) error {
		return s.adapter.PatchEntity(ctx, kind, id, patchFields(patch))
	}, nil)
	s.persistTree()
	s.rescan()
}
