package reconcile

import (
	"testing"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

func localTree() tree.Tree {
	return tree.Tree{
		{
			ID:      "proj-1",
			Title:   "local title",
			OwnerID: "user-1",
			Stages: []model.Stage{
				{
					ID: "stage-1",
					Tasks: []model.Task{
						{ID: "task-1", Title: "local task"},
						{ID: "task-new", Title: "pending create"},
					},
				},
				{ID: "stage-new", Title: "pending stage"},
			},
		},
		{ID: "proj-new", Title: "pending project", OwnerID: "user-1"},
	}
}

func authTree() tree.Tree {
	return tree.Tree{
		{
			ID:      "proj-1",
			Title:   "server title",
			OwnerID: "user-1",
			Stages: []model.Stage{
				{
					ID: "stage-1",
					Tasks: []model.Task{
						{ID: "task-1", Title: "server task"},
					},
				},
			},
		},
	}
}

func TestMergeAuthoritativeWinsForKnownEntities(t *testing.T) {
	out := Merge(localTree(), authTree(), Pending{})
	if len(out) != 1 {
		t.Fatalf("non-pending local project survived: %d projects", len(out))
	}
	if out[0].Title != "server title" {
		t.Fatalf("project title = %q", out[0].Title)
	}
	if got := out[0].Stages[0].Tasks[0].Title; got != "server task" {
		t.Fatalf("task title = %q", got)
	}
}

func TestMergePreservesPendingCreates(t *testing.T) {
	pending := Pending{"proj-new": true, "stage-new": true, "task-new": true}

	out := Merge(localTree(), authTree(), pending)
	if len(out) != 2 {
		t.Fatalf("pending project dropped: %d projects", len(out))
	}
	if out[1].ID != "proj-new" {
		t.Fatalf("project order = %v %v", out[0].ID, out[1].ID)
	}

	proj := out[0]
	if len(proj.Stages) != 2 || proj.Stages[1].ID != "stage-new" {
		t.Fatalf("pending stage dropped: %+v", proj.Stages)
	}
	tasks := proj.Stages[0].Tasks
	if len(tasks) != 2 || tasks[1].ID != "task-new" {
		t.Fatalf("pending task dropped: %+v", tasks)
	}
	// Confirmed fields still come from the snapshot.
	if tasks[0].Title != "server task" || proj.Title != "server title" {
		t.Fatalf("snapshot lost authority: %+v", proj)
	}
}

func TestMergeConfirmsEchoedIDs(t *testing.T) {
	pending := Pending{"task-new": true}

	auth := authTree()
	auth[0].Stages[0].Tasks = append(auth[0].Stages[0].Tasks, model.Task{ID: "task-new", Title: "server copy"})

	out := Merge(localTree(), auth, pending)
	if pending.Has("task-new") {
		t.Fatalf("confirmed id still pending")
	}
	tasks := out[0].Stages[0].Tasks
	if len(tasks) != 2 || tasks[1].Title != "server copy" {
		t.Fatalf("confirmed entity not taken from snapshot: %+v", tasks)
	}
}

func TestMergePendingSubtasksAndComments(t *testing.T) {
	local := authTree()
	local[0].Stages[0].Tasks[0].Subtasks = []model.Subtask{{ID: "sub-new", Title: "pending sub"}}
	local[0].Stages[0].Tasks[0].Comments = []model.Comment{{ID: "cmt-new", Body: "pending comment"}}
	pending := Pending{"sub-new": true, "cmt-new": true}

	out := Merge(local, authTree(), pending)
	task := out[0].Stages[0].Tasks[0]
	if len(task.Subtasks) != 1 || task.Subtasks[0].ID != "sub-new" {
		t.Fatalf("pending subtask dropped: %+v", task.Subtasks)
	}
	if len(task.Comments) != 1 || task.Comments[0].ID != "cmt-new" {
		t.Fatalf("pending comment dropped: %+v", task.Comments)
	}
}

func TestMergeDeletionWinsForNonPending(t *testing.T) {
	// task-1 exists locally but not in the snapshot and is not pending: the
	// remote deletion wins.
	out := Merge(localTree(), tree.Tree{{ID: "proj-1", Stages: []model.Stage{{ID: "stage-1"}}}}, Pending{})
	if n := len(out[0].Stages[0].Tasks); n != 0 {
		t.Fatalf("deleted task survived: %d", n)
	}
}

func TestRelevant(t *testing.T) {
	tr := tree.Tree{{ID: "proj-1", OwnerID: "user-1"}}

	cases := []struct {
		name string
		ev   model.ChangeEvent
		want bool
	}{
		{"own echo", model.ChangeEvent{ActorID: "user-1", ProjectID: "proj-x"}, true},
		{"visible project", model.ChangeEvent{ActorID: "user-2", ProjectID: "proj-1"}, true},
		{"invisible project", model.ChangeEvent{ActorID: "user-2", ProjectID: "proj-x"}, false},
		{"newly shared project", model.ChangeEvent{ActorID: "user-2", Kind: model.KindProject, EntityID: "proj-x"}, true},
		{"known project entity", model.ChangeEvent{ActorID: "user-2", Kind: model.KindProject, EntityID: "proj-1"}, false},
	}
	for _, c := range cases {
		if got := Relevant(tr, "user-1", c.ev); got != c.want {
			t.Fatalf("%s: Relevant = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	fired := make(chan struct{}, 8)
	d := NewDebouncer(DebouncerOpts{SelfDelay: 40 * time.Millisecond, OtherDelay: 10 * time.Millisecond}, func() {
		fired <- struct{}{}
	})
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Notify(false)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("debouncer never fired")
	}
	select {
	case <-fired:
		t.Fatalf("burst fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerSelfWindowOutlastsOther(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(DebouncerOpts{SelfDelay: 80 * time.Millisecond, OtherDelay: 10 * time.Millisecond}, func() {
		fired <- struct{}{}
	})
	defer d.Stop()

	d.Notify(true)
	select {
	case <-fired:
		t.Fatalf("self event fired inside the other-delay window")
	case <-time.After(30 * time.Millisecond):
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("self event never fired")
	}
}

func TestDebouncerStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(DebouncerOpts{SelfDelay: 20 * time.Millisecond, OtherDelay: 20 * time.Millisecond}, func() {
		fired <- struct{}{}
	})

	d.Notify(false)
	d.Stop()
	select {
	case <-fired:
		t.Fatalf("fired after Stop")
	case <-time.After(60 * time.Millisecond):
	}
}
