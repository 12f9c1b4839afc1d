package store

import (
	"context"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

// Adapter is the single persistence contract all sync-core components are
// written against. Two interchangeable backends exist, selected once per
// session: Local (demo mode, everything in durable client storage) and
// Remote (shared authoritative backend plus push feed). Swapping backends
// changes nothing about the tree/today/notification logic.
//
// Entity verbs (Patch/Create/Delete) are how the connected backend persists;
// the whole-blob saves are how the local backend persists. Each backend
// accepts the other family as a cheap success so callers can dispatch both
// unconditionally.
type Adapter interface {
	LoadTree(ctx context.Context, userID string) (tree.Tree, error)
	LoadToday(ctx context.Context, userID string) ([]model.TodayItem, error)
	LoadNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	LoadDismissedKeys(ctx context.Context, userID string) ([]string, error)
	LoadTags(ctx context.Context, userID string) ([]model.Tag, error)

	SaveTree(ctx context.Context, userID string, t tree.Tree) error
	// SaveToday is a whole-list upsert; the backend resolves concurrent saves
	// last-write-wins by clientTS.
	SaveToday(ctx context.Context, userID string, items []model.TodayItem, clientTS time.Time) error
	SaveNotifications(ctx context.Context, userID string, items []model.Notification) error
	SaveDismissedKeys(ctx context.Context, userID string, keys []string) error
	SaveTags(ctx context.Context, userID string, tags []model.Tag) error

	PatchEntity(ctx context.Context, kind model.EntityKind, id string, patch map[string]any) error
	CreateEntity(ctx context.Context, kind model.EntityKind, payload any) error
	DeleteEntity(ctx context.Context, kind model.EntityKind, id string) error

	SubscribeChanges(ctx context.Context, userID string, relevantIDs []string, onEvent func(model.ChangeEvent)) (Subscription, error)
	NotifyCollaborators(ctx context.Context, projectID, excludeUserID string, template model.Notification) error
}

// Subscription is a handle on a live change feed.
type Subscription interface {
	Unsubscribe() error
}

// noopSubscription backs backends without a push feed (demo mode).
type noopSubscription struct{}

func (noopSubscription) Unsubscribe() error { return nil }
