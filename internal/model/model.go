package model

import "time"

// Stamps are the audit fields every tree entity carries. ModifiedByName is a
// display-name snapshot taken at write time so the UI never has to join
// against a user directory to render "edited by".
type Stamps struct {
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	CreatedBy      string    `json:"createdBy"`
	ModifiedBy     string    `json:"modifiedBy"`
	CreatedByName  string    `json:"createdByName,omitempty"`
	ModifiedByName string    `json:"modifiedByName,omitempty"`
}

type Project struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	OwnerID string   `json:"ownerId"`
	Members []string `json:"members,omitempty"`
	Stages  []Stage  `json:"stages"`
	Stamps
}

type Stage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
	Stamps
}

type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Reminder  *time.Time `json:"reminder,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Subtasks  []Subtask  `json:"subtasks"`
	Comments  []Comment  `json:"comments,omitempty"`
	Stamps
}

type Subtask struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Reminder  *time.Time `json:"reminder,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Stamps
}

type Comment struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Body     string `json:"body"`
	Stamps
}

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// TodayItem is a focus-list entry. A standalone item (IsLocal) is free text
// with no backing tree reference. A linked copy snapshots the source
// task/subtask's title and tags at add-time and tracks completion
// independently of the source.
type TodayItem struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Done            bool       `json:"done"`
	IsLocal         bool       `json:"isLocal"`
	SourceTaskID    string     `json:"sourceTaskId,omitempty"`
	SourceSubtaskID string     `json:"sourceSubtaskId,omitempty"`
	ProjectID       string     `json:"projectId,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	DoneAt          *time.Time `json:"doneAt,omitempty"`
}

// Linked reports whether the item references a tree task or subtask.
func (it TodayItem) Linked() bool {
	return !it.IsLocal && it.SourceTaskID != ""
}

type NotificationType string

const (
	NotificationReminderSet    NotificationType = "reminder_set"
	NotificationTaskOverdue    NotificationType = "task_overdue"
	NotificationSubtaskOverdue NotificationType = "subtask_overdue"
	NotificationCreated        NotificationType = "created"
	NotificationDeleted        NotificationType = "deleted"
	NotificationModified       NotificationType = "modified"
	NotificationShared         NotificationType = "shared"
	NotificationCompleted      NotificationType = "completed"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	ProjectID string           `json:"projectId,omitempty"`
	TaskID    string           `json:"taskId,omitempty"`
	SubtaskID string           `json:"subtaskId,omitempty"`
	Message   string           `json:"message,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Key returns the notification's idempotency key: at most one live
// notification may exist per key per user.
func (n Notification) Key() string {
	return NotificationKey(n.Type, n.TaskID, n.SubtaskID)
}

func NotificationKey(typ NotificationType, taskID, subtaskID string) string {
	k := string(typ) + ":" + taskID
	if subtaskID != "" {
		k += "/" + subtaskID
	}
	return k
}

// EntityKind selects the target collection for adapter CRUD verbs.
type EntityKind string

const (
	KindProject EntityKind = "project"
	KindStage   EntityKind = "stage"
	KindTask    EntityKind = "task"
	KindSubtask EntityKind = "subtask"
	KindComment EntityKind = "comment"
	KindTag     EntityKind = "tag"
)

// ChangeEvent is one entry of the backend's push feed.
type ChangeEvent struct {
	Kind      EntityKind `json:"kind"`
	EntityID  string     `json:"entityId"`
	ProjectID string     `json:"projectId,omitempty"`
	ActorID   string     `json:"actorId"`
	TS        time.Time  `json:"ts"`
}

// UserContext is the session context consumed from the auth layer.
type UserContext struct {
	CurrentUserID string `json:"currentUserId"`
	DisplayName   string `json:"displayName,omitempty"`
	IsDemoMode    bool   `json:"isDemoMode"`
}

// Shared reports whether a project is visible to anyone besides user.
// A pending invite that nobody accepted creates no member, so it does not
// count as shared.
func (p Project) Shared(userID string) bool {
	return p.OwnerID != userID || len(p.Members) > 0
}
