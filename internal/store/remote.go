package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

// Remote is the connected backend: an authoritative HTTP store plus a
// websocket change feed. All verbs resolve to a {data, error} envelope;
// backend-reported errors come back as RemoteError values, never panics.
type Remote struct {
	BaseURL string
	Client  *http.Client
	Dialer  *websocket.Dialer
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
		Dialer:  websocket.DefaultDialer,
	}
}

// RemoteError is a failure reported by the backend (as opposed to a
// transport-level failure).
type RemoteError struct {
	Status  int
	Message string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote: %s (http %d)", e.Message, e.Status)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

func (r *Remote) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return err
	}
	if env.Error != "" {
		return RemoteError{Status: resp.StatusCode, Message: env.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (r *Remote) LoadTree(ctx context.Context, userID string) (tree.Tree, error) {
	var t tree.Tree
	if err := r.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/tree", nil, &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = tree.Tree{}
	}
	return t, nil
}

func (r *Remote) LoadToday(ctx context.Context, userID string) ([]model.TodayItem, error) {
	var items []model.TodayItem
	err := r.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/today", nil, &items)
	return items, err
}

func (r *Remote) LoadNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	var items []model.Notification
	err := r.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/notifications", nil, &items)
	return items, err
}

func (r *Remote) LoadDismissedKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	err := r.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/dismissed-keys", nil, &keys)
	return keys, err
}

func (r *Remote) LoadTags(ctx context.Context, userID string) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/tags", nil, &tags)
	return tags, err
}

func (r *Remote) SaveTags(ctx context.Context, userID string, tags []model.Tag) error {
	return r.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/tags", tags, nil)
}

// SaveTree is a demo-mode verb; the connected backend persists through the
// entity verbs instead.
func (r *Remote) SaveTree(ctx context.Context, userID string, t tree.Tree) error {
	return nil
}

func (r *Remote) SaveToday(ctx context.Context, userID string, items []model.TodayItem, clientTS time.Time) error {
	body := map[string]any{"items": items, "clientTs": clientTS.UTC()}
	return r.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/today", body, nil)
}

func (r *Remote) SaveNotifications(ctx context.Context, userID string, items []model.Notification) error {
	return r.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/notifications", items, nil)
}

func (r *Remote) SaveDismissedKeys(ctx context.Context, userID string, keys []string) error {
	return r.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/dismissed-keys", keys, nil)
}

func (r *Remote) PatchEntity(ctx context.Context, kind model.EntityKind, id string, patch map[string]any) error {
	return r.do(ctx, http.MethodPatch, "/api/"+string(kind)+"s/"+url.PathEscape(id), patch, nil)
}

func (r *Remote) CreateEntity(ctx context.Context, kind model.EntityKind, payload any) error {
	return r.do(ctx, http.MethodPost, "/api/"+string(kind)+"s", payload, nil)
}

func (r *Remote) DeleteEntity(ctx context.Context, kind model.EntityKind, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/"+string(kind)+"s/"+url.PathEscape(id), nil, nil)
}

func (r *Remote) NotifyCollaborators(ctx context.Context, projectID, excludeUserID string, template model.Notification) error {
	body := map[string]any{"excludeUserId": excludeUserID, "template": template}
	return r.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/notify", body, nil)
}

type wsSubscription struct {
	conn *websocket.Conn
	done chan struct{}
}

func (s *wsSubscription) Unsubscribe() error {
	err := s.conn.Close()
	<-s.done
	return err
}

// SubscribeChanges opens the websocket change feed and delivers decoded
// events to onEvent until the subscription is closed or the connection
// drops. Delivery happens on the reader goroutine; onEvent must be cheap
// (the session only classifies and pokes its debouncer).
func (r *Remote) SubscribeChanges(ctx context.Context, userID string, relevantIDs []string, onEvent func(model.ChangeEvent)) (Subscription, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/users/" + url.PathEscape(userID) + "/changes"
	q := u.Query()
	if len(relevantIDs) > 0 {
		q.Set("ids", strings.Join(relevantIDs, ","))
	}
	u.RawQuery = q.Encode()

	conn, _, err := r.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev model.ChangeEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				// Unknown frame; the feed also carries keepalives.
				continue
			}
			if ev.EntityID == "" && ev.Kind == "" {
				continue
			}
			onEvent(ev)
		}
	}()
	return sub, nil
}
