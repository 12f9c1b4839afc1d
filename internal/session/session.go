package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"focal-cli/internal/model"
	"focal-cli/internal/notify"
	"focal-cli/internal/reconcile"
	"focal-cli/internal/store"
	"focal-cli/internal/today"
	"focal-cli/internal/tree"
)

var ErrEmptyTitle = errors.New("empty title")

// Notice is a non-blocking user-facing message (the CLI prints it, a UI
// would toast). Remote failures surface here after rollback; they are never
// returned as errors from the mutator that dispatched the write.
type Notice struct {
	Message string
	Err     error
}

// Session owns the client-side state-coherence core: the canonical tree, the
// Today list, the notification list, the overdue scanner and the
// reconciliation machinery, all wired to one persistence adapter.
//
// All state transitions happen under one mutex, mirroring the single
// interactive event loop this core models: mutations between suspension
// points are atomic with respect to each other.
type Session struct {
	mu sync.Mutex

	user    model.UserContext
	adapter store.Adapter

	tree          tree.Tree
	todayList     today.List
	notifications []model.Notification
	tags          []model.Tag

	scanner   *notify.Scanner
	pending   reconcile.Pending
	debouncer *reconcile.Debouncer
	sub       store.Subscription

	selectedProjectID string

	onNotice func(Notice)
	// onSystemNotification is the one-way "display a system notification"
	// sink (desktop shell integration, out of scope beyond this boundary).
	onSystemNotification func(model.Notification)

	now   func() time.Time
	newID func(prefix string) string

	writes sync.WaitGroup
}

type Config struct {
	User    model.UserContext
	Adapter store.Adapter

	OnNotice             func(Notice)
	OnSystemNotification func(model.Notification)
	Debounce             reconcile.DebouncerOpts

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func(prefix string) string
}

func New(cfg Config) *Session {
	s := &Session{
		user:                 cfg.User,
		adapter:              cfg.Adapter,
		onNotice:             cfg.OnNotice,
		onSystemNotification: cfg.OnSystemNotification,
		pending:              reconcile.Pending{},
		now:                  cfg.Now,
		newID:                cfg.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = store.NewID
	}
	s.debouncer = reconcile.NewDebouncer(cfg.Debounce, s.refresh)
	return s
}

// Start hydrates the session from the adapter and, in connected mode,
// subscribes to the push feed.
func (s *Session) Start(ctx context.Context) error {
	uid := s.user.CurrentUserID

	t, err := s.adapter.LoadTree(ctx, uid)
	if err != nil {
		return err
	}
	items, err := s.adapter.LoadToday(ctx, uid)
	if err != nil {
		return err
	}
	ns, err := s.adapter.LoadNotifications(ctx, uid)
	if err != nil {
		return err
	}
	dismissed, err := s.adapter.LoadDismissedKeys(ctx, uid)
	if err != nil {
		return err
	}
	tags, err := s.adapter.LoadTags(ctx, uid)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tree = t
	s.todayList = today.List(items)
	s.notifications = ns
	s.tags = tags
	s.scanner = notify.NewScanner(uid, dismissed)
	relevant := make([]string, 0, len(t))
	for _, p := range t {
		relevant = append(relevant, p.ID)
	}
	s.mu.Unlock()

	if !s.user.IsDemoMode {
		sub, err := s.adapter.SubscribeChanges(ctx, uid, relevant, s.HandlePush)
		if err != nil {
			return err
		}
		s.sub = sub
	}
	return nil
}

// Close tears down the push subscription and waits for in-flight writes.
func (s *Session) Close() error {
	s.debouncer.Stop()
	var err error
	if s.sub != nil {
		err = s.sub.Unsubscribe()
	}
	s.writes.Wait()
	return err
}

// Flush waits for all dispatched writes to settle. CLI commands call this
// before exiting so fire-and-forget does not mean fire-and-lose.
func (s *Session) Flush() {
	s.writes.Wait()
}

// Tree returns the current tree. Callers must treat it as immutable and
// re-fetch after any mutation or reconciliation; holding a Project value
// across a refresh is exactly the stale-pointer bug FindLatest exists for.
func (s *Session) Tree() tree.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

func (s *Session) Today() today.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todayList
}

func (s *Session) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications
}

func (s *Session) Tags() []model.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags
}

// Select records the project the UI is viewing. Selected re-resolves it by
// id against the latest tree, never by object identity.
func (s *Session) Select(projectID string) {
	s.mu.Lock()
	s.selectedProjectID = projectID
	s.mu.Unlock()
}

func (s *Session) Selected() (model.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedProjectID == "" {
		return model.Project{}, false
	}
	return tree.FindLatest(s.tree, s.selectedProjectID)
}

func (s *Session) actor() tree.Actor {
	return tree.Actor{ID: s.user.CurrentUserID, Name: s.user.DisplayName}
}

func (s *Session) notice(msg string, err error) {
	if s.onNotice != nil {
		s.onNotice(Notice{Message: msg, Err: err})
	}
}

// dispatch runs a remote write in the background. On failure the
// compensating rollback is applied under the lock and the user is informed
// through a notice; the optimistic local change has already happened and the
// caller has already returned.
func (s *Session) dispatch(desc string, remote func(ctx context.Context) error, compensate func()) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := remote(ctx)
		if err == nil || benign(err) {
			return
		}
		s.mu.Lock()
		if compensate != nil {
			compensate()
		}
		s.mu.Unlock()
		s.notice(desc+" failed; change reverted", err)
	}()
}

// benign: the target was already gone (concurrently deleted). Treated as a
// successful no-op, not an error.
func benign(err error) bool {
	var re store.RemoteError
	if errors.As(err, &re) {
		return re.Status == 404
	}
	return false
}

// persistTree saves the tree blob (demo mode) in the background. The
// snapshot is taken at run time, not dispatch time, so out-of-order write
// goroutines cannot regress the stored blob. Connected mode persists through
// entity verbs instead; SaveTree is a no-op there.
func (s *Session) persistTree() {
	s.dispatch("save", func(ctx context.Context) error {
		s.mu.Lock()
		snapshot := s.tree
		s.mu.Unlock()
		return s.adapter.SaveTree(ctx, s.user.CurrentUserID, snapshot)
	}, nil)
}

// persistToday upserts the whole list; prev is the compensation target if
// the upsert is rejected.
func (s *Session) persistToday(prev today.List, ts time.Time) {
	s.dispatch("save today list", func(ctx context.Context) error {
		s.mu.Lock()
		snapshot := s.todayList
		s.mu.Unlock()
		return s.adapter.SaveToday(ctx, s.user.CurrentUserID, snapshot, ts)
	}, func() {
		s.todayList = prev
	})
}

func (s *Session) persistNotifications() {
	s.dispatch("save notifications", func(ctx context.Context) error {
		s.mu.Lock()
		snapshot := s.notifications
		s.mu.Unlock()
		return s.adapter.SaveNotifications(ctx, s.user.CurrentUserID, snapshot)
	}, nil)
}

func (s *Session) persistTags() {
	s.dispatch("save tags", func(ctx context.Context) error {
		s.mu.Lock()
		snapshot := s.tags
		s.mu.Unlock()
		return s.adapter.SaveTags(ctx, s.user.CurrentUserID, snapshot)
	}, nil)
}

// fanOut notifies collaborators on shared projects, excluding the acting
// user. The backend enforces the notification idempotency key on its side.
func (s *Session) fanOut(p model.Project, typ model.NotificationType, taskID, subtaskID, message string) {
	if s.user.IsDemoMode || !p.Shared(s.user.CurrentUserID) {
		return
	}
	template := model.Notification{
		Type:      typ,
		ProjectID: p.ID,
		TaskID:    taskID,
		SubtaskID: subtaskID,
		Message:   message,
		CreatedAt: s.now(),
	}
	s.dispatch("notify collaborators", func(ctx context.Context) error {
		return s.adapter.NotifyCollaborators(ctx, p.ID, s.user.CurrentUserID, template)
	}, nil)
}
