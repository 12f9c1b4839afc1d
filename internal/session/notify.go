package session

import (
	"context"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/reconcile"
	"focal-cli/internal/today"
	"focal-cli/internal/tree"
)

// RunScan runs one overdue scan against the current tree. Both the periodic
// ticker and tree-change-triggered scans land here, sharing the scanner's
// dedup state, so a mutation-triggered scan and the next tick cannot
// double-fire a key.
func (s *Session) RunScan() []model.Notification {
	now := s.now()

	s.mu.Lock()
	if s.scanner == nil {
		s.mu.Unlock()
		return nil
	}
	fresh := s.scanner.Scan(s.tree, s.notifications, now, func() string { return s.newID("ntf") })
	if len(fresh) > 0 {
		s.notifications = append(append([]model.Notification(nil), s.notifications...), fresh...)
	}
	s.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	s.persistNotifications()
	if s.onSystemNotification != nil {
		for _, n := range fresh {
			s.onSystemNotification(n)
		}
	}
	return fresh
}

// rescan is the tree-change trigger for the scanner.
func (s *Session) rescan() {
	s.RunScan()
}

// StartScanner ticks the overdue scan at a fixed cadence until ctx is done.
func (s *Session) StartScanner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunScan()
			}
		}
	}()
}

// MarkNotificationRead flips isRead; unknown id is a no-op.
func (s *Session) MarkNotificationRead(id string) {
	s.mu.Lock()
	out := append([]model.Notification(nil), s.notifications...)
	changed := false
	for i := range out {
		if out[i].ID == id && !out[i].IsRead {
			out[i].IsRead = true
			changed = true
		}
	}
	if changed {
		s.notifications = out
	}
	s.mu.Unlock()
	if changed {
		s.persistNotifications()
	}
}

// DismissNotifications deletes notifications and records their idempotency
// keys in the persistent dismissed set: once dismissed, a key never
// regenerates even while the underlying item remains overdue.
func (s *Session) DismissNotifications(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	var keys []string
	out := s.notifications[:0:0]
	for _, n := range s.notifications {
		if drop[n.ID] {
			keys = append(keys, n.Key())
			continue
		}
		out = append(out, n)
	}
	s.notifications = out
	var dismissed []string
	if s.scanner != nil {
		dismissed = s.scanner.Dismiss(keys...)
	}
	s.mu.Unlock()

	s.persistNotifications()
	s.dispatch("save dismissed keys", func(ctx context.Context) error {
		return s.adapter.SaveDismissedKeys(ctx, s.user.CurrentUserID, dismissed)
	}, nil)
}

// HandlePush receives a change-feed event. Irrelevant events are dropped;
// relevant ones poke the debouncer, which coalesces the burst into a single
// refresh. Self-originated echoes get the longer window so the store does
// not fight a rapid local edit sequence.
func (s *Session) HandlePush(ev model.ChangeEvent) {
	s.mu.Lock()
	relevant := reconcile.Relevant(s.tree, s.user.CurrentUserID, ev)
	s.mu.Unlock()
	if !relevant {
		return
	}
	s.debouncer.Notify(ev.ActorID == s.user.CurrentUserID)
}

// refresh is the debouncer's fire target: fetch the authoritative tree,
// merge it additively over pending local creates, re-resolve the held
// selection by id, sync linked Today copies, and rescan for overdue work.
func (s *Session) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authoritative, err := s.adapter.LoadTree(ctx, s.user.CurrentUserID)
	if err != nil {
		s.notice("refresh failed", err)
		return
	}

	s.mu.Lock()
	s.tree = reconcile.Merge(s.tree, authoritative, s.pending)
	if s.selectedProjectID != "" {
		if _, ok := tree.FindLatest(s.tree, s.selectedProjectID); !ok {
			s.selectedProjectID = ""
		}
	}
	t := s.tree
	s.todayList = today.SyncFromTree(s.todayList,
		func(id string) (model.Task, bool) {
			_, task, ok := tree.FindTask(t, id)
			return task, ok
		},
		func(taskID, subID string) (model.Subtask, bool) {
			_, sub, ok := tree.FindSubtask(t, taskID, subID)
			return sub, ok
		})
	s.mu.Unlock()

	s.rescan()
}

// Refresh forces an immediate reconciliation pass (bypassing the debouncer).
func (s *Session) Refresh() {
	s.refresh()
}
