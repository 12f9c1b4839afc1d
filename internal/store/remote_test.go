package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

func TestRemoteLoadTreeDecodesEnvelope(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{
			"data": tree.Tree{{ID: "proj-1", Title: "from server"}},
		})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL + "/")
	got, err := r.LoadTree(context.Background(), "user 1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if gotPath != "/api/users/user%201/tree" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(got) != 1 || got[0].ID != "proj-1" {
		t.Fatalf("tree = %+v", got)
	}
}

func TestRemoteEmptyTreeIsNonNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	got, err := NewRemote(srv.URL).LoadTree(context.Background(), "u")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("tree = %#v", got)
	}
}

func TestRemoteErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "no such task"})
	}))
	defer srv.Close()

	err := NewRemote(srv.URL).DeleteEntity(context.Background(), model.KindTask, "task-1")
	var re RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v (%T)", err, err)
	}
	if re.Status != 404 || re.Message != "no such task" {
		t.Fatalf("remote error = %+v", re)
	}
}

func TestRemoteNonEnvelopeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemote(srv.URL).SaveNotifications(context.Background(), "u", nil)
	var re RemoteError
	if !errors.As(err, &re) || re.Status != 502 {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoteSaveTodayBody(t *testing.T) {
	var (
		gotMethod string
		gotBody   struct {
			Items    []model.TodayItem `json:"items"`
			ClientTS time.Time         `json:"clientTs"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	ts := time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)
	items := []model.TodayItem{{ID: "it-1", Title: "x", IsLocal: true}}
	if err := NewRemote(srv.URL).SaveToday(context.Background(), "u", items, ts); err != nil {
		t.Fatalf("SaveToday: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("method = %s", gotMethod)
	}
	if len(gotBody.Items) != 1 || gotBody.Items[0].ID != "it-1" || !gotBody.ClientTS.Equal(ts) {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestRemotePatchAndCreatePaths(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL)
	ctx := context.Background()
	if err := r.CreateEntity(ctx, model.KindTask, model.Task{ID: "task-1"}); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := r.PatchEntity(ctx, model.KindSubtask, "sub-1", map[string]any{"completed": true}); err != nil {
		t.Fatalf("PatchEntity: %v", err)
	}
	if err := r.NotifyCollaborators(ctx, "proj-1", "u", model.Notification{Type: model.NotificationModified}); err != nil {
		t.Fatalf("NotifyCollaborators: %v", err)
	}

	want := []string{
		"POST /api/tasks",
		"PATCH /api/subtasks/sub-1",
		"POST /api/projects/proj-1/notify",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestSubscribeChangesDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u/changes" {
			t.Errorf("ws path = %q", r.URL.Path)
		}
		if ids := r.URL.Query().Get("ids"); ids != "proj-1,proj-2" {
			t.Errorf("ids = %q", ids)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Keepalive frame first; the client must skip it.
		conn.WriteMessage(websocket.TextMessage, []byte(`{}`))
		conn.WriteJSON(model.ChangeEvent{
			Kind: model.KindTask, EntityID: "task-1", ProjectID: "proj-1", ActorID: "other",
		})
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	events := make(chan model.ChangeEvent, 2)
	sub, err := NewRemote(srv.URL).SubscribeChanges(context.Background(), "u",
		[]string{"proj-1", "proj-2"},
		func(ev model.ChangeEvent) { events <- ev })
	if err != nil {
		t.Fatalf("SubscribeChanges: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != model.KindTask || ev.EntityID != "task-1" || ev.ActorID != "other" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered")
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("event after unsubscribe: %+v", ev)
	default:
	}
}
