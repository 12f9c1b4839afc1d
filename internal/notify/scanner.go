package notify

import (
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/tree"
)

// Scanner produces idempotent overdue notifications from the project tree.
//
// Two key sets back the dedup contract:
//   - session: keys notified since session start. In-memory only; pruned when
//     an item stops being overdue so a rescheduled reminder can fire again.
//   - dismissed: keys the user explicitly deleted/cleared. Persisted across
//     sessions; once dismissed a key never regenerates while the underlying
//     item stays overdue.
//
// Both timer ticks and tree-change-triggered scans go through the same
// Scanner value, so back-to-back scans cannot double-fire a key.
type Scanner struct {
	UserID string

	session   map[string]bool
	dismissed map[string]bool
}

func NewScanner(userID string, dismissed []string) *Scanner {
	s := &Scanner{
		UserID:    userID,
		session:   map[string]bool{},
		dismissed: map[string]bool{},
	}
	for _, k := range dismissed {
		s.dismissed[k] = true
	}
	return s
}

type candidate struct {
	key       string
	typ       model.NotificationType
	projectID string
	taskID    string
	subtaskID string
	title     string
}

// Scan walks the tree once and returns the notifications to append for items
// whose reminder is in the past and which are not completed. The scan is
// read-only with respect to the tree and only ever produces appends; the
// caller owns the notification list.
func (s *Scanner) Scan(t tree.Tree, live []model.Notification, now time.Time, newID func() string) []model.Notification {
	cands := collectOverdue(t, now)

	liveKeys := make(map[string]bool, len(live))
	for _, n := range live {
		liveKeys[n.Key()] = true
	}

	// Prune the session set first: keys with no overdue candidate anymore
	// (completed, deleted, or rescheduled into the future) must be able to
	// fire again if they become overdue later.
	current := make(map[string]bool, len(cands))
	for _, c := range cands {
		current[c.key] = true
	}
	for k := range s.session {
		if !current[k] {
			delete(s.session, k)
		}
	}

	var out []model.Notification
	for _, c := range cands {
		if s.session[c.key] || liveKeys[c.key] || s.dismissed[c.key] {
			continue
		}
		s.session[c.key] = true
		out = append(out, model.Notification{
			ID:        newID(),
			UserID:    s.UserID,
			Type:      c.typ,
			ProjectID: c.projectID,
			TaskID:    c.taskID,
			SubtaskID: c.subtaskID,
			Message:   c.title,
			CreatedAt: now,
		})
	}
	return out
}

// Dismiss records keys the user deleted/cleared. Returns the full dismissed
// set for persistence.
func (s *Scanner) Dismiss(keys ...string) []string {
	for _, k := range keys {
		s.dismissed[k] = true
	}
	return s.DismissedKeys()
}

func (s *Scanner) DismissedKeys() []string {
	out := make([]string, 0, len(s.dismissed))
	for k := range s.dismissed {
		out = append(out, k)
	}
	return out
}

func collectOverdue(t tree.Tree, now time.Time) []candidate {
	var out []candidate
	for _, proj := range t {
		for _, st := range proj.Stages {
			for _, task := range st.Tasks {
				if task.Reminder != nil && task.Reminder.Before(now) && !task.Completed {
					out = append(out, candidate{
						key:       model.NotificationKey(model.NotificationTaskOverdue, task.ID, ""),
						typ:       model.NotificationTaskOverdue,
						projectID: proj.ID,
						taskID:    task.ID,
						title:     task.Title,
					})
				}
				for _, sub := range task.Subtasks {
					if sub.Reminder != nil && sub.Reminder.Before(now) && !sub.Completed {
						out = append(out, candidate{
							key:       model.NotificationKey(model.NotificationSubtaskOverdue, task.ID, sub.ID),
							typ:       model.NotificationSubtaskOverdue,
							projectID: proj.ID,
							taskID:    task.ID,
							subtaskID: sub.ID,
							title:     sub.Title,
						})
					}
				}
			}
		}
	}
	return out
}
