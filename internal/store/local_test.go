package store

import (
	"context"
	"testing"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

func TestLocalBlobsRoundTrip(t *testing.T) {
	l := Local{Dir: t.TempDir()}
	ctx := context.Background()
	when := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	tr := tree.Tree{
		{
			ID:      "proj-1",
			Title:   "Fermentation run",
			OwnerID: "user-1",
			Stages: []model.Stage{
				{ID: "stage-1", Title: "Prep", Tasks: []model.Task{
					{ID: "task-1", Title: "Sterilize", Reminder: &when, Tags: []string{"tag-1"}},
				}},
			},
		},
	}
	if err := l.SaveTree(ctx, "user-1", tr); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	got, err := l.LoadTree(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(got) != 1 || got[0].ID != "proj-1" {
		t.Fatalf("tree = %+v", got)
	}
	task := got[0].Stages[0].Tasks[0]
	if task.Reminder == nil || !task.Reminder.Equal(when) || len(task.Tags) != 1 {
		t.Fatalf("task = %+v", task)
	}

	today := []model.TodayItem{{ID: "it-1", Title: "x", IsLocal: true, CreatedAt: when}}
	if err := l.SaveToday(ctx, "user-1", today, when); err != nil {
		t.Fatalf("SaveToday: %v", err)
	}
	gotToday, err := l.LoadToday(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	if len(gotToday) != 1 || gotToday[0].ID != "it-1" || !gotToday[0].IsLocal {
		t.Fatalf("today = %+v", gotToday)
	}

	ntfs := []model.Notification{{ID: "ntf-1", UserID: "user-1", Type: model.NotificationTaskOverdue, TaskID: "task-1", CreatedAt: when}}
	if err := l.SaveNotifications(ctx, "user-1", ntfs); err != nil {
		t.Fatalf("SaveNotifications: %v", err)
	}
	gotNtfs, err := l.LoadNotifications(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadNotifications: %v", err)
	}
	if len(gotNtfs) != 1 || gotNtfs[0].Key() != "task_overdue:task-1" {
		t.Fatalf("notifications = %+v", gotNtfs)
	}

	keys := []string{"task_overdue:task-1"}
	if err := l.SaveDismissedKeys(ctx, "user-1", keys); err != nil {
		t.Fatalf("SaveDismissedKeys: %v", err)
	}
	gotKeys, err := l.LoadDismissedKeys(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadDismissedKeys: %v", err)
	}
	if len(gotKeys) != 1 || gotKeys[0] != keys[0] {
		t.Fatalf("keys = %v", gotKeys)
	}

	tags := []model.Tag{{ID: "tag-1", Name: "urgent", Color: "#f00"}}
	if err := l.SaveTags(ctx, "user-1", tags); err != nil {
		t.Fatalf("SaveTags: %v", err)
	}
	gotTags, err := l.LoadTags(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}
	if len(gotTags) != 1 || gotTags[0].Name != "urgent" {
		t.Fatalf("tags = %+v", gotTags)
	}
}

func TestLocalEmptyStateLoads(t *testing.T) {
	l := Local{Dir: t.TempDir()}
	ctx := context.Background()

	tr, err := l.LoadTree(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if tr == nil || len(tr) != 0 {
		t.Fatalf("empty tree = %#v", tr)
	}
	if items, err := l.LoadToday(ctx, "user-1"); err != nil || items != nil {
		t.Fatalf("LoadToday = %v, %v", items, err)
	}
	if keys, err := l.LoadDismissedKeys(ctx, "user-1"); err != nil || keys != nil {
		t.Fatalf("LoadDismissedKeys = %v, %v", keys, err)
	}
}

func TestLocalBlobsAreScopedByUser(t *testing.T) {
	l := Local{Dir: t.TempDir()}
	ctx := context.Background()

	if err := l.SaveTree(ctx, "user-1", tree.Tree{{ID: "proj-1"}}); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	other, err := l.LoadTree(ctx, "user-2")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("user-2 sees user-1's tree: %+v", other)
	}
}

func TestLocalSaveReplacesWhole(t *testing.T) {
	l := Local{Dir: t.TempDir()}
	ctx := context.Background()

	if err := l.SaveTree(ctx, "user-1", tree.Tree{{ID: "proj-1"}, {ID: "proj-2"}}); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	if err := l.SaveTree(ctx, "user-1", tree.Tree{{ID: "proj-2"}}); err != nil {
		t.Fatalf("SaveTree: %v", err)
	}
	got, err := l.LoadTree(ctx, "user-1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(got) != 1 || got[0].ID != "proj-2" {
		t.Fatalf("tree = %+v", got)
	}
}

func TestLocalEntityVerbsAreNoOps(t *testing.T) {
	l := Local{Dir: t.TempDir()}
	ctx := context.Background()

	if err := l.CreateEntity(ctx, model.KindTask, model.Task{ID: "t"}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := l.PatchEntity(ctx, model.KindTask, "t", map[string]any{"title": "x"}); err != nil {
		t.Fatalf("PatchEntity: %v", err)
	}
	if err := l.DeleteEntity(ctx, model.KindTask, "t"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	sub, err := l.SubscribeChanges(ctx, "user-1", nil, func(model.ChangeEvent) {})
	if err != nil {
		t.Fatalf("SubscribeChanges: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
}
