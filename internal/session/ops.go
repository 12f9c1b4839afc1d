package session

import (
	"context"
	"strings"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

// Tree mutators. Each follows the same saga shape: validate, apply the
// optimistic edit synchronously (visible to the Today/notification
// derivations immediately), then dispatch the remote write with a
// compensation that re-applies the previous value at the same path. The
// compensation targets the path, not a whole-tree snapshot, so edits that
// landed in between are not clobbered by a rollback.

func (s *Session) CreateProject(title string) (model.Project, error) {
	if strings.TrimSpace(title) == "" {
		return model.Project{}, ErrEmptyTitle
	}
	now := s.now()
	p := model.Project{
		ID:      s.newID("proj"),
		Title:   title,
		OwnerID: s.user.CurrentUserID,
		Stages:  []model.Stage{},
		Stamps:  s.stamps(now),
	}

	s.mu.Lock()
	s.tree = tree.InsertProject(s.tree, p)
	s.pending.Add(p.ID)
	s.mu.Unlock()

	s.dispatch("create project", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindProject, p)
	}, func() {
		s.tree = tree.RemoveProject(s.tree, p.ID)
		s.pending.Drop(p.ID)
	})
	s.persistTree()
	s.rescan()
	return p, nil
}

func (s *Session) RenameProject(projectID, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	now := s.now()

	s.mu.Lock()
	prev, ok := tree.FindLatest(s.tree, projectID)
	if !ok {
		s.mu.Unlock()
		return nil // concurrently deleted: benign no-op
	}
	prevTitle := prev.Title
	s.tree, _ = tree.Apply(s.tree, tree.ProjectPath(projectID), tree.Patch{Title: &title}, s.actor(), now)
	s.mu.Unlock()

	s.dispatch("rename project", func(ctx context.Context) error {
		return s.adapter.PatchEntity(ctx, model.KindProject, projectID, map[string]any{"title": title})
	}, func() {
		s.tree, _ = tree.Apply(s.tree, tree.ProjectPath(projectID), tree.Patch{Title: &prevTitle}, s.actor(), s.now())
	})
	s.persistTree()
	s.fanOut(prev, model.NotificationModified, "", "", title)
	return nil
}

// DeleteProject removes the project immediately; the remote delete is
// fire-and-forget with no compensation (a 404 means someone else already
// deleted it, which is the outcome we wanted).
func (s *Session) DeleteProject(projectID string) {
	s.mu.Lock()
	p, ok := tree.FindLatest(s.tree, projectID)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.tree = tree.RemoveProject(s.tree, projectID)
	s.pending.Drop(projectID)
	s.mu.Unlock()

	s.dispatch("delete project", func(ctx context.Context) error {
		return s.adapter.DeleteEntity(ctx, model.KindProject, projectID)
	}, nil)
	s.persistTree()
	s.fanOut(p, model.NotificationDeleted, "", "", p.Title)
	s.rescan()
}

func (s *Session) AddStage(projectID, title string) (model.Stage, error) {
	if strings.TrimSpace(title) == "" {
		return model.Stage{}, ErrEmptyTitle
	}
	now := s.now()
	st := model.Stage{
		ID:     s.newID("stage"),
		Title:  title,
		Tasks:  []model.Task{},
		Stamps: s.stamps(now),
	}

	s.mu.Lock()
	next, ok := tree.AppendStage(s.tree, projectID, st, now)
	if !ok {
		s.mu.Unlock()
		return model.Stage{}, nil
	}
	s.tree = next
	s.pending.Add(st.ID)
	s.mu.Unlock()

	s.dispatch("add stage", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindStage, st)
	}, func() {
		s.tree, _ = tree.RemoveStage(s.tree, projectID, st.ID)
		s.pending.Drop(st.ID)
	})
	s.persistTree()
	return st, nil
}

func (s *Session) AddTask(projectID string, stage int, title string) (model.Task, error) {
	if strings.TrimSpace(title) == "" {
		return model.Task{}, ErrEmptyTitle
	}
	now := s.now()
	task := model.Task{
		ID:       s.newID("task"),
		Title:    title,
		Subtasks: []model.Subtask{},
		Stamps:   s.stamps(now),
	}

	s.mu.Lock()
	next, ok := tree.AppendTask(s.tree, projectID, stage, task, now)
	if !ok {
		s.mu.Unlock()
		return model.Task{}, nil
	}
	s.tree = next
	s.pending.Add(task.ID)
	p, _ := tree.FindLatest(s.tree, projectID)
	s.mu.Unlock()

	s.dispatch("add task", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindTask, task)
	}, func() {
		s.tree, _ = tree.RemoveTask(s.tree, task.ID)
		s.pending.Drop(task.ID)
	})
	s.persistTree()
	s.fanOut(p, model.NotificationCreated, task.ID, "", title)
	return task, nil
}

func (s *Session) AddSubtask(taskID, title string) (model.Subtask, error) {
	if strings.TrimSpace(title) == "" {
		return model.Subtask{}, ErrEmptyTitle
	}
	now := s.now()
	sub := model.Subtask{
		ID:     s.newID("sub"),
		Title:  title,
		Stamps: s.stamps(now),
	}

	s.mu.Lock()
	next, ok := tree.AppendSubtask(s.tree, taskID, sub, now)
	if !ok {
		s.mu.Unlock()
		return model.Subtask{}, nil
	}
	s.tree = next
	s.pending.Add(sub.ID)
	s.mu.Unlock()

	s.dispatch("add subtask", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindSubtask, sub)
	}, func() {
		s.tree, _ = tree.RemoveSubtask(s.tree, taskID, sub.ID)
		s.pending.Drop(sub.ID)
	})
	s.persistTree()
	return sub, nil
}

func (s *Session) AddComment(taskID, body string) (model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return model.Comment{}, ErrEmptyTitle
	}
	now := s.now()
	c := model.Comment{
		ID:       s.newID("cmt"),
		AuthorID: s.user.CurrentUserID,
		Body:     body,
		Stamps:   s.stamps(now),
	}

	s.mu.Lock()
	next, ok := tree.AppendComment(s.tree, taskID, c, now)
	if !ok {
		s.mu.Unlock()
		return model.Comment{}, nil
	}
	s.tree = next
	s.pending.Add(c.ID)
	s.mu.Unlock()

	s.dispatch("add comment", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindComment, c)
	}, func() {
		s.tree, _ = tree.RemoveComment(s.tree, taskID, c.ID)
		s.pending.Drop(c.ID)
	})
	s.persistTree()
	return c, nil
}

// EditTask applies a partial patch at the task's current path. A task that
// no longer exists is a benign no-op.
func (s *Session) EditTask(taskID string, patch tree.Patch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrEmptyTitle
	}
	now := s.now()

	s.mu.Lock()
	path, prev, ok := tree.FindTask(s.tree, taskID)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.tree, _ = tree.Apply(s.tree, path, patch, s.actor(), now)
	p, _ := tree.FindLatest(s.tree, path.ProjectID)
	s.mu.Unlock()

	s.dispatch("edit task", func(ctx context.Context) error {
		return s.adapter.PatchEntity(ctx, model.KindTask, taskID, patchFields(patch))
	}, func() {
		s.tree, _ = tree.Apply(s.tree, path, inversePatch(patch, prev.Title, prev.Completed, prev.Reminder, prev.Tags), s.actor(), s.now())
	})
	s.persistTree()
	s.fanOut(p, model.NotificationModified, taskID, "", prev.Title)
	s.rescan()
	return nil
}

// EditSubtask is EditTask for a subtask.
func (s *Session) EditSubtask(taskID, subtaskID string, patch tree.Patch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrEmptyTitle
	}
	now := s.now()

	s.mu.Lock()
	path, prev, ok := tree.FindSubtask(s.tree, taskID, subtaskID)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.tree, _ = tree.Apply(s.tree, path, patch, s.actor(), now)
	p, _ := tree.FindLatest(s.tree, path.ProjectID)
	s.mu.Unlock()

	s.dispatch("edit subtask", func(ctx context.Context) error {
		return s.adapter.PatchEntity(ctx, model.KindSubtask, subtaskID, patchFields(patch))
	}, func() {
		s.tree, _ = tree.Apply(s.tree, path, inversePatch(patch, prev.Title, prev.Completed, prev.Reminder, prev.Tags), s.actor(), s.now())
	})
	s.persistTree()
	s.fanOut(p, model.NotificationModified, taskID, subtaskID, prev.Title)
	s.rescan()
	return nil
}

// CompleteTask sets the task's completion flag and fans out to
// collaborators when it flips to done.
func (s *Session) CompleteTask(taskID string, done bool) error {
	if err := s.EditTask(taskID, tree.Patch{Completed: &done}); err != nil {
		return err
	}
	if done {
		s.mu.Lock()
		path, task, ok := tree.FindTask(s.tree, taskID)
		var p model.Project
		if ok {
			p, _ = tree.FindLatest(s.tree, path.ProjectID)
		}
		s.mu.Unlock()
		if ok {
			s.fanOut(p, model.NotificationCompleted, taskID, "", task.Title)
		}
	}
	return nil
}

// SetTaskReminder schedules (or clears, with a zero time) a reminder.
func (s *Session) SetTaskReminder(taskID string, when time.Time) error {
	patch := tree.Patch{}
	if when.IsZero() {
		patch.ClearReminder = true
	} else {
		patch.Reminder = &when
	}
	if err := s.EditTask(taskID, patch); err != nil {
		return err
	}
	if !when.IsZero() {
		s.mu.Lock()
		path, task, ok := tree.FindTask(s.tree, taskID)
		var p model.Project
		if ok {
			p, _ = tree.FindLatest(s.tree, path.ProjectID)
		}
		s.mu.Unlock()
		if ok {
			s.fanOut(p, model.NotificationReminderSet, taskID, "", task.Title)
		}
	}
	return nil
}

func (s *Session) DeleteTask(taskID string) {
	s.mu.Lock()
	path, task, ok := tree.FindTask(s.tree, taskID)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.tree, _ = tree.RemoveTask(s.tree, taskID)
	s.pending.Drop(taskID)
	p, _ := tree.FindLatest(s.tree, path.ProjectID)
	s.mu.Unlock()

	s.dispatch("delete task", func(ctx context.Context) error {
		return s.adapter.DeleteEntity(ctx, model.KindTask, taskID)
	}, nil)
	s.persistTree()
	s.fanOut(p, model.NotificationDeleted, taskID, "", task.Title)
	s.rescan()
}

// Tag operations. The canonical tag list lives beside the tree; tag ids are
// denormalized into tasks/subtasks, so deletion cascades through the tree.

func (s *Session) CreateTag(name, color string) (model.Tag, error) {
	if strings.TrimSpace(name) == "" {
		return model.Tag{}, ErrEmptyTitle
	}
	tag := model.Tag{ID: s.newID("tag"), Name: name, Color: color}

	s.mu.Lock()
	s.tags = append(append([]model.Tag(nil), s.tags...), tag)
	s.mu.Unlock()

	s.dispatch("create tag", func(ctx context.Context) error {
		return s.adapter.CreateEntity(ctx, model.KindTag, tag)
	}, func() {
		out := s.tags[:0:0]
		for _, tg := range s.tags {
			if tg.ID != tag.ID {
				out = append(out, tg)
			}
		}
		s.tags = out
	})
	s.persistTags()
	return tag, nil
}

func (s *Session) DeleteTag(tagID string) {
	s.mu.Lock()
	out := s.tags[:0:0]
	for _, tg := range s.tags {
		if tg.ID != tagID {
			out = append(out, tg)
		}
	}
	s.tags = out
	s.tree = tree.RemoveTag(s.tree, tagID)
	s.mu.Unlock()

	s.dispatch("delete tag", func(ctx context.Context) error {
		return s.adapter.DeleteEntity(ctx, model.KindTag, tagID)
	}, nil)
	s.persistTags()
	s.persistTree()
}

func (s *Session) stamps(now time.Time) model.Stamps {
	return model.Stamps{
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      s.user.CurrentUserID,
		ModifiedBy:     s.user.CurrentUserID,
		CreatedByName:  s.user.DisplayName,
		ModifiedByName: s.user.DisplayName,
	}
}

// patchFields converts a tree.Patch into the wire shape for patchEntity.
func patchFields(p tree.Patch) map[string]any {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Completed != nil {
		out["completed"] = *p.Completed
	}
	if p.ClearReminder {
		out["reminder"] = nil
	} else if p.Reminder != nil {
		out["reminder"] = p.Reminder.UTC()
	}
	if p.Tags != nil {
		out["tags"] = *p.Tags
	}
	return out
}

// inversePatch builds the compensation for a patch from the pre-edit values
// of exactly the fields the patch touched.
func inversePatch(p tree.Patch, title string, completed bool, reminder *time.Time, tags []string) tree.Patch {
	var inv tree.Patch
	if p.Title != nil {
		inv.Title = &title
	}
	if p.Completed != nil {
		inv.Completed = &completed
	}
	if p.Reminder != nil || p.ClearReminder {
		if reminder == nil {
			inv.ClearReminder = true
		} else {
			r := *reminder
			inv.Reminder = &r
		}
	}
	if p.Tags != nil {
		cp := append([]string(nil), tags...)
		inv.Tags = &cp
	}
	return inv
}
