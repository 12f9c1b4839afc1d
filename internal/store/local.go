package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

const sqliteFileName = "focal.sqlite"

// Blob keys for the demo-mode storage layout: three independently-keyed
// blobs plus the dismissed-key set, each read/written as an atomic whole.
const (
	blobTree          = "tree"
	blobToday         = "today"
	blobNotifications = "notifications"
	blobDismissedKeys = "dismissed_keys"
	blobTags          = "tags"
)

// Local is the demo/offline backend: durable client-side storage only, no
// push feed. Everything lives in one SQLite file under Dir.
type Local struct {
	Dir string
}

func (l Local) Ensure() error {
	return os.MkdirAll(l.Dir, 0o755)
}

func (l Local) sqlitePath() string {
	return filepath.Join(l.Dir, sqliteFileName)
}

func (l Local) open(ctx context.Context) (*sql.DB, error) {
	if err := l.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", l.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout helps avoid
	// "database is locked" flakiness when a second focal process runs.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS blobs (
  user_id           TEXT NOT NULL,
  k                 TEXT NOT NULL,
  json              TEXT NOT NULL,
  updated_at_unixms INTEGER NOT NULL,
  PRIMARY KEY (user_id, k)
);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (l Local) loadBlob(ctx context.Context, userID, key string, v any) error {
	db, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT json FROM blobs WHERE user_id = ? AND k = ?`, userID, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func (l Local) saveBlob(ctx context.Context, userID, key string, v any, ts time.Time) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	db, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blobs(user_id, k, json, updated_at_unixms) VALUES(?, ?, ?, ?)`,
		userID, key, string(raw), ts.UTC().UnixMilli())
	return err
}

func (l Local) LoadTree(ctx context.Context, userID string) (tree.Tree, error) {
	var t tree.Tree
	if err := l.loadBlob(ctx, userID, blobTree, &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = tree.Tree{}
	}
	return t, nil
}

func (l Local) LoadToday(ctx context.Context, userID string) ([]model.TodayItem, error) {
	var items []model.TodayItem
	if err := l.loadBlob(ctx, userID, blobToday, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l Local) LoadNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	var items []model.Notification
	if err := l.loadBlob(ctx, userID, blobNotifications, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l Local) LoadDismissedKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	if err := l.loadBlob(ctx, userID, blobDismissedKeys, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (l Local) LoadTags(ctx context.Context, userID string) ([]model.Tag, error) {
	var tags []model.Tag
	if err := l.loadBlob(ctx, userID, blobTags, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (l Local) SaveTags(ctx context.Context, userID string, tags []model.Tag) error {
	return l.saveBlob(ctx, userID, blobTags, tags, time.Now())
}

func (l Local) SaveTree(ctx context.Context, userID string, t tree.Tree) error {
	return l.saveBlob(ctx, userID, blobTree, t, time.Now())
}

func (l Local) SaveToday(ctx context.Context, userID string, items []model.TodayItem, clientTS time.Time) error {
	if clientTS.IsZero() {
		clientTS = time.Now()
	}
	return l.saveBlob(ctx, userID, blobToday, items, clientTS)
}

func (l Local) SaveNotifications(ctx context.Context, userID string, items []model.Notification) error {
	return l.saveBlob(ctx, userID, blobNotifications, items, time.Now())
}

func (l Local) SaveDismissedKeys(ctx context.Context, userID string, keys []string) error {
	return l.saveBlob(ctx, userID, blobDismissedKeys, keys, time.Now())
}

// Entity verbs are the connected backend's persistence style; in demo mode
// state is captured by the whole-blob saves, so these succeed without work.
func (l Local) PatchEntity(ctx context.Context, kind model.EntityKind, id string, patch map[string]any) error {
	return nil
}

func (l Local) CreateEntity(ctx context.Context, kind model.EntityKind, payload any) error {
	return nil
}

func (l Local) DeleteEntity(ctx context.Context, kind model.EntityKind, id string) error {
	return nil
}

// SubscribeChanges returns an inert handle: demo mode has no second device to
// hear from.
func (l Local) SubscribeChanges(ctx context.Context, userID string, relevantIDs []string, onEvent func(model.ChangeEvent)) (Subscription, error) {
	return noopSubscription{}, nil
}

func (l Local) NotifyCollaborators(ctx context.Context, projectID, excludeUserID string, template model.Notification) error {
	return nil
}
