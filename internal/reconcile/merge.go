package reconcile

import (
	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

// Pending tracks locally-created entity ids that the backend has not yet
// echoed back. Entities in this set survive an authoritative merge even when
// the snapshot does not contain them; once the snapshot carries the id the
// entity is confirmed and the authoritative copy wins thereafter.
type Pending map[string]bool

func (p Pending) Add(id string)      { p[id] = true }
func (p Pending) Drop(id string)     { delete(p, id) }
func (p Pending) Has(id string) bool { return p[id] }

// Relevant classifies a push event against the current tree: an event is
// worth a re-fetch only if it touches a project the user can see or is the
// user's own echo. Irrelevant events are dropped before debouncing.
func Relevant(t tree.Tree, userID string, ev model.ChangeEvent) bool {
	if ev.ActorID == userID {
		return true
	}
	if ev.ProjectID != "" {
		if _, ok := tree.FindLatest(t, ev.ProjectID); ok {
			return true
		}
	}
	if ev.Kind == model.KindProject && ev.EntityID != "" {
		// A newly shared project is not in the local tree yet; let it through
		// so the merge can pick it up.
		if _, ok := tree.FindLatest(t, ev.EntityID); !ok {
			return true
		}
	}
	return false
}

// Merge folds an authoritative snapshot into the local tree. The snapshot
// wins everywhere except for locally-pending entities it does not yet
// contain: those are retained alongside the authoritative data.
//
// Confirmed ids (present in the snapshot) are dropped from pending as a side
// effect.
func Merge(local, authoritative tree.Tree, pending Pending) tree.Tree {
	known := snapshotIDs(authoritative)
	for id := range pending {
		if known[id] {
			pending.Drop(id)
		}
	}
	if len(pending) == 0 {
		return authoritative
	}

	out := authoritative

	// Pending projects: the whole subtree rides along.
	for _, proj := range local {
		if pending.Has(proj.ID) && !known[proj.ID] {
			out = append(append(tree.Tree(nil), out...), proj)
		}
	}

	// Pending stages/tasks/subtasks/comments inside projects both sides know.
	for _, proj := range local {
		if pending.Has(proj.ID) {
			continue
		}
		ai := indexOfProject(out, proj.ID)
		if ai < 0 {
			continue
		}
		merged := mergeProject(out[ai], proj, pending, known)
		cp := make(tree.Tree, len(out))
		copy(cp, out)
		cp[ai] = merged
		out = cp
	}
	return out
}

func mergeProject(auth, local model.Project, pending Pending, known map[string]bool) model.Project {
	out := auth
	out.Stages = append([]model.Stage(nil), auth.Stages...)

	for _, st := range local.Stages {
		if pending.Has(st.ID) && !known[st.ID] {
			out.Stages = append(out.Stages, st)
			continue
		}
		ai := indexOfStage(out.Stages, st.ID)
		if ai < 0 {
			continue
		}
		out.Stages[ai] = mergeStage(out.Stages[ai], st, pending, known)
	}
	return out
}

func mergeStage(auth, local model.Stage, pending Pending, known map[string]bool) model.Stage {
	out := auth
	out.Tasks = append([]model.Task(nil), auth.Tasks...)

	for _, task := range local.Tasks {
		if pending.Has(task.ID) && !known[task.ID] {
			out.Tasks = append(out.Tasks, task)
			continue
		}
		ai := indexOfTaskSlice(out.Tasks, task.ID)
		if ai < 0 {
			continue
		}
		out.Tasks[ai] = mergeTask(out.Tasks[ai], task, pending, known)
	}
	return out
}

func mergeTask(auth, local model.Task, pending Pending, known map[string]bool) model.Task {
	out := auth
	out.Subtasks = append([]model.Subtask(nil), auth.Subtasks...)
	out.Comments = append([]model.Comment(nil), auth.Comments...)

	for _, sub := range local.Subtasks {
		if pending.Has(sub.ID) && !known[sub.ID] {
			out.Subtasks = append(out.Subtasks, sub)
		}
	}
	for _, c := range local.Comments {
		if pending.Has(c.ID) && !known[c.ID] {
			out.Comments = append(out.Comments, c)
		}
	}
	return out
}

func snapshotIDs(t tree.Tree) map[string]bool {
	ids := map[string]bool{}
	for _, proj := range t {
		ids[proj.ID] = true
		for _, st := range proj.Stages {
			ids[st.ID] = true
			for _, task := range st.Tasks {
				ids[task.ID] = true
				for _, sub := range task.Subtasks {
					ids[sub.ID] = true
				}
				for _, c := range task.Comments {
					ids[c.ID] = true
				}
			}
		}
	}
	return ids
}

func indexOfProject(t tree.Tree, id string) int {
	for i := range t {
		if t[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfStage(s []model.Stage, id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfTaskSlice(s []model.Task, id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}
