package tree

import (
	"time"

	"focal-cli/internal/model"
)

// Tree is the canonical in-memory project tree. All mutators are pure: they
// copy along the mutated path and share everything else, so consumers can
// diff/memoize by comparing slices.
type Tree []model.Project

// Path addresses a node: projectID, stage index, then optional task/subtask
// ids. Stage is -1 when the target is the project itself.
type Path struct {
	ProjectID string
	Stage     int
	TaskID    string
	SubtaskID string
}

func ProjectPath(projectID string) Path {
	return Path{ProjectID: projectID, Stage: -1}
}

func TaskPath(projectID string, stage int, taskID string) Path {
	return Path{ProjectID: projectID, Stage: stage, TaskID: taskID}
}

func SubtaskPath(projectID string, stage int, taskID, subtaskID string) Path {
	return Path{ProjectID: projectID, Stage: stage, TaskID: taskID, SubtaskID: subtaskID}
}

// Patch is a partial update. Nil fields are left untouched. ClearReminder
// distinguishes "unset the reminder" from "leave it alone".
type Patch struct {
	Title         *string
	Completed     *bool
	Reminder      *time.Time
	ClearReminder bool
	Tags          *[]string
}

// Actor identifies who is editing, for the ModifiedBy stamps.
type Actor struct {
	ID   string
	Name string
}

// Apply returns a new tree with patch applied at path. A path that no longer
// exists (concurrently deleted) is a no-op, not an error: the second return
// is false and the original tree is returned unchanged.
//
// UpdatedAt/ModifiedBy are stamped on the mutated node and UpdatedAt is
// propagated to the owning project.
func Apply(t Tree, p Path, patch Patch, by Actor, now time.Time) (Tree, bool) {
	pi := indexOfProject(t, p.ProjectID)
	if pi < 0 {
		return t, false
	}

	out := cloneProjects(t)
	proj := &out[pi]

	// Project-level patch.
	if p.Stage < 0 {
		patchStrings(&proj.Title, patch.Title)
		stamp(&proj.Stamps, by, now)
		return out, true
	}

	if p.Stage >= len(proj.Stages) {
		return t, false
	}
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]

	if p.TaskID == "" {
		patchStrings(&st.Title, patch.Title)
		stamp(&st.Stamps, by, now)
		touchProject(proj, now)
		return out, true
	}

	ti := indexOfTask(st.Tasks, p.TaskID)
	if ti < 0 {
		return t, false
	}
	st.Tasks = cloneTasks(st.Tasks)
	task := &st.Tasks[ti]

	if p.SubtaskID == "" {
		applyPatchTask(task, patch)
		stamp(&task.Stamps, by, now)
		touchProject(proj, now)
		return out, true
	}

	si := indexOfSubtask(task.Subtasks, p.SubtaskID)
	if si < 0 {
		return t, false
	}
	task.Subtasks = cloneSubtasks(task.Subtasks)
	sub := &task.Subtasks[si]
	applyPatchSubtask(sub, patch)
	stamp(&sub.Stamps, by, now)
	touchProject(proj, now)
	return out, true
}

// FindLatest resolves a project by id against the latest tree. External
// pushes may have replaced object identity; holders of a stale project must
// re-resolve through this after every reconciliation.
func FindLatest(t Tree, projectID string) (model.Project, bool) {
	i := indexOfProject(t, projectID)
	if i < 0 {
		return model.Project{}, false
	}
	return t[i], true
}

// FindTask locates a task anywhere in the tree and returns its full path.
func FindTask(t Tree, taskID string) (Path, model.Task, bool) {
	for _, proj := range t {
		for si, st := range proj.Stages {
			for _, task := range st.Tasks {
				if task.ID == taskID {
					return TaskPath(proj.ID, si, taskID), task, true
				}
			}
		}
	}
	return Path{}, model.Task{}, false
}

// FindSubtask locates a subtask by (taskID, subtaskID).
func FindSubtask(t Tree, taskID, subtaskID string) (Path, model.Subtask, bool) {
	p, task, ok := FindTask(t, taskID)
	if !ok {
		return Path{}, model.Subtask{}, false
	}
	for _, sub := range task.Subtasks {
		if sub.ID == subtaskID {
			p.SubtaskID = subtaskID
			return p, sub, true
		}
	}
	return Path{}, model.Subtask{}, false
}

// InsertProject prepends a project (newest-first, matching the UI).
func InsertProject(t Tree, p model.Project) Tree {
	out := make(Tree, 0, len(t)+1)
	out = append(out, p)
	out = append(out, t...)
	return out
}

// RemoveProject drops a project by id; missing id is a no-op.
func RemoveProject(t Tree, projectID string) Tree {
	i := indexOfProject(t, projectID)
	if i < 0 {
		return t
	}
	out := make(Tree, 0, len(t)-1)
	out = append(out, t[:i]...)
	out = append(out, t[i+1:]...)
	return out
}

// AppendStage adds a stage to the end of a project's stage list.
func AppendStage(t Tree, projectID string, st model.Stage, now time.Time) (Tree, bool) {
	pi := indexOfProject(t, projectID)
	if pi < 0 {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[pi]
	proj.Stages = append(cloneStages(proj.Stages), st)
	touchProject(proj, now)
	return out, true
}

// AppendTask adds a task to the end of a stage's task list.
func AppendTask(t Tree, projectID string, stage int, task model.Task, now time.Time) (Tree, bool) {
	pi := indexOfProject(t, projectID)
	if pi < 0 {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[pi]
	if stage < 0 || stage >= len(proj.Stages) {
		return t, false
	}
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[stage]
	st.Tasks = append(cloneTasks(st.Tasks), task)
	touchProject(proj, now)
	return out, true
}

// AppendSubtask adds a subtask to a task found by id anywhere in the tree.
func AppendSubtask(t Tree, taskID string, sub model.Subtask, now time.Time) (Tree, bool) {
	p, _, ok := FindTask(t, taskID)
	if !ok {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[indexOfProject(out, p.ProjectID)]
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]
	st.Tasks = cloneTasks(st.Tasks)
	task := &st.Tasks[indexOfTask(st.Tasks, taskID)]
	task.Subtasks = append(cloneSubtasks(task.Subtasks), sub)
	touchProject(proj, now)
	return out, true
}

// AppendComment attaches a comment to a task.
func AppendComment(t Tree, taskID string, c model.Comment, now time.Time) (Tree, bool) {
	p, _, ok := FindTask(t, taskID)
	if !ok {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[indexOfProject(out, p.ProjectID)]
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]
	st.Tasks = cloneTasks(st.Tasks)
	task := &st.Tasks[indexOfTask(st.Tasks, taskID)]
	task.Comments = append(append([]model.Comment(nil), task.Comments...), c)
	touchProject(proj, now)
	return out, true
}

// RemoveTask drops a task by id; missing id is a no-op.
func RemoveTask(t Tree, taskID string) (Tree, bool) {
	p, _, ok := FindTask(t, taskID)
	if !ok {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[indexOfProject(out, p.ProjectID)]
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]
	ti := indexOfTask(st.Tasks, taskID)
	tasks := make([]model.Task, 0, len(st.Tasks)-1)
	tasks = append(tasks, st.Tasks[:ti]...)
	tasks = append(tasks, st.Tasks[ti+1:]...)
	st.Tasks = tasks
	return out, true
}

// RemoveStage drops a stage by id; missing id is a no-op.
func RemoveStage(t Tree, projectID, stageID string) (Tree, bool) {
	pi := indexOfProject(t, projectID)
	if pi < 0 {
		return t, false
	}
	si := -1
	for i := range t[pi].Stages {
		if t[pi].Stages[i].ID == stageID {
			si = i
			break
		}
	}
	if si < 0 {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[pi]
	stages := make([]model.Stage, 0, len(proj.Stages)-1)
	stages = append(stages, proj.Stages[:si]...)
	stages = append(stages, proj.Stages[si+1:]...)
	proj.Stages = stages
	return out, true
}

// RemoveSubtask drops a subtask by (taskID, subtaskID); missing is a no-op.
func RemoveSubtask(t Tree, taskID, subtaskID string) (Tree, bool) {
	p, _, ok := FindSubtask(t, taskID, subtaskID)
	if !ok {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[indexOfProject(out, p.ProjectID)]
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]
	st.Tasks = cloneTasks(st.Tasks)
	task := &st.Tasks[indexOfTask(st.Tasks, taskID)]
	si := indexOfSubtask(task.Subtasks, subtaskID)
	subs := make([]model.Subtask, 0, len(task.Subtasks)-1)
	subs = append(subs, task.Subtasks[:si]...)
	subs = append(subs, task.Subtasks[si+1:]...)
	task.Subtasks = subs
	return out, true
}

// RemoveComment drops a comment by id from a task.
func RemoveComment(t Tree, taskID, commentID string) (Tree, bool) {
	p, task, ok := FindTask(t, taskID)
	if !ok {
		return t, false
	}
	ci := -1
	for i := range task.Comments {
		if task.Comments[i].ID == commentID {
			ci = i
			break
		}
	}
	if ci < 0 {
		return t, false
	}
	out := cloneProjects(t)
	proj := &out[indexOfProject(out, p.ProjectID)]
	proj.Stages = cloneStages(proj.Stages)
	st := &proj.Stages[p.Stage]
	st.Tasks = cloneTasks(st.Tasks)
	tk := &st.Tasks[indexOfTask(st.Tasks, taskID)]
	comments := make([]model.Comment, 0, len(tk.Comments)-1)
	comments = append(comments, tk.Comments[:ci]...)
	comments = append(comments, tk.Comments[ci+1:]...)
	tk.Comments = comments
	return out, true
}

// SetTaskCompletion flips a task's completion flag wherever it lives.
// Used by the Today -> Tree propagation path.
func SetTaskCompletion(t Tree, taskID string, done bool, by Actor, now time.Time) (Tree, bool) {
	p, _, ok := FindTask(t, taskID)
	if !ok {
		return t, false
	}
	return Apply(t, p, Patch{Completed: &done}, by, now)
}

// SetSubtaskCompletion flips a subtask's completion flag.
func SetSubtaskCompletion(t Tree, taskID, subtaskID string, done bool, by Actor, now time.Time) (Tree, bool) {
	p, _, ok := FindSubtask(t, taskID, subtaskID)
	if !ok {
		return t, false
	}
	return Apply(t, p, Patch{Completed: &done}, by, now)
}

// RemoveTag cascade-removes a deleted tag id from every task and subtask.
// Tags are denormalized into the tree for rendering, so deleting the tag from
// the canonical tag list alone would leave dangling references.
func RemoveTag(t Tree, tagID string) Tree {
	out := cloneProjects(t)
	for pi := range out {
		proj := &out[pi]
		proj.Stages = cloneStages(proj.Stages)
		for si := range proj.Stages {
			st := &proj.Stages[si]
			st.Tasks = cloneTasks(st.Tasks)
			for ti := range st.Tasks {
				task := &st.Tasks[ti]
				task.Tags = withoutTag(task.Tags, tagID)
				task.Subtasks = cloneSubtasks(task.Subtasks)
				for sui := range task.Subtasks {
					task.Subtasks[sui].Tags = withoutTag(task.Subtasks[sui].Tags, tagID)
				}
			}
		}
	}
	return out
}

func withoutTag(tags []string, tagID string) []string {
	found := false
	for _, id := range tags {
		if id == tagID {
			found = true
			break
		}
	}
	if !found {
		return tags
	}
	out := make([]string, 0, len(tags)-1)
	for _, id := range tags {
		if id != tagID {
			out = append(out, id)
		}
	}
	return out
}

func indexOfProject(t Tree, id string) int {
	for i := range t {
		if t[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfTask(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfSubtask(subs []model.Subtask, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneProjects(t Tree) Tree {
	out := make(Tree, len(t))
	copy(out, t)
	return out
}

func cloneStages(s []model.Stage) []model.Stage {
	out := make([]model.Stage, len(s))
	copy(out, s)
	return out
}

func cloneTasks(s []model.Task) []model.Task {
	out := make([]model.Task, len(s))
	copy(out, s)
	return out
}

func cloneSubtasks(s []model.Subtask) []model.Subtask {
	out := make([]model.Subtask, len(s))
	copy(out, s)
	return out
}

func patchStrings(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyPatchTask(task *model.Task, p Patch) {
	patchStrings(&task.Title, p.Title)
	if p.Completed != nil {
		task.Completed = *p.Completed
	}
	if p.ClearReminder {
		task.Reminder = nil
	} else if p.Reminder != nil {
		r := *p.Reminder
		task.Reminder = &r
	}
	if p.Tags != nil {
		task.Tags = append([]string(nil), (*p.Tags)...)
	}
}

func applyPatchSubtask(sub *model.Subtask, p Patch) {
	patchStrings(&sub.Title, p.Title)
	if p.Completed != nil {
		sub.Completed = *p.Completed
	}
	if p.ClearReminder {
		sub.Reminder = nil
	} else if p.Reminder != nil {
		r := *p.Reminder
		sub.Reminder = &r
	}
	if p.Tags != nil {
		sub.Tags = append([]string(nil), (*p.Tags)...)
	}
}

func stamp(s *model.Stamps, by Actor, now time.Time) {
	s.UpdatedAt = now
	s.ModifiedBy = by.ID
	if by.Name != "" {
		s.ModifiedByName = by.Name
	}
}

func touchProject(p *model.Project, now time.Time) {
	p.UpdatedAt = now
}
