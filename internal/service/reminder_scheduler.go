package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/notify"
)

// ReminderOffset is how long before the due date a reminder fires.
const ReminderOffset = time.Hour

// Notifier is the local notification service.
type Notifier interface {
	RequestPermission(ctx context.Context, userID uint) (bool, error)
	ScheduleAt(fireAt time.Time, n notify.Notification) (string, error)
	ListScheduled() []notify.Scheduled
	Cancel(id string) error
}

// PreferenceReader loads a user's switches.
type PreferenceReader interface {
	Get(ctx context.Context, userID uint) (model.Preferences, error)
}

// ReminderScheduler keeps at most one pending reminder per task, firing at dueDate-1h.
// Every failure is logged and swallowed so that task persistence never depends on it.
type ReminderScheduler struct {
	notifier Notifier
	prefs    PreferenceReader
	log      *zap.SugaredLogger
	now      func() time.Time
	locks    taskLocks
}

// taskLocks serializes cancel-then-schedule sequences per task id.
type taskLocks struct {
	mu   sync.Mutex
	byID map[string]*taskLock
}

type taskLock struct {
	sync.Mutex
	refs int
}

func (l *taskLocks) lock(taskID string) func() {
	l.mu.Lock()
	if l.byID == nil {
		l.byID = make(map[string]*taskLock)
	}
	tl, ok := l.byID[taskID]
	if !ok {
		tl = &taskLock{}
		l.byID[taskID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.byID, taskID)
		}
		l.mu.Unlock()
	}
}

func NewReminderScheduler(notifier Notifier, prefs PreferenceReader, log *zap.SugaredLogger, now func() time.Time) *ReminderScheduler {
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{
		notifier: notifier,
		prefs:    prefs,
		log:      log.With("component", "reminders"),
		now:      now,
	}
}

// FireTime is the instant a reminder for due goes off.
func FireTime(due time.Time) time.Time {
	return due.Add(-ReminderOffset)
}

// Schedule registers a reminder for the task. It does nothing when the user has
// notifications off, permission is missing, or the fire time already passed.
func (s *ReminderScheduler) Schedule(ctx context.Context, userID uint, taskID, title string, due time.Time) {
	defer s.locks.lock(taskID)()
	s.scheduleIfEnabled(ctx, userID, taskID, title, due)
}

func (s *ReminderScheduler) scheduleIfEnabled(ctx context.Context, userID uint, taskID, title string, due time.Time) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		s.log.Warnw("load preferences for reminder", "user_id", userID, "task_id", taskID, "error", err)
		return
	}
	if !prefs.NotificationsEnabled {
		return
	}
	s.schedule(ctx, userID, taskID, title, due)
}

func (s *ReminderScheduler) schedule(ctx context.Context, userID uint, taskID, title string, due time.Time) bool {
	fireAt := FireTime(due)
	if !fireAt.After(s.now()) {
		s.log.Debugw("reminder time already passed, skipping", "task_id", taskID, "fire_at", fireAt)
		return false
	}

	granted, err := s.notifier.RequestPermission(ctx, userID)
	if err != nil {
		s.log.Warnw("notification permission check failed", "user_id", userID, "error", err)
	}
	if !granted {
		s.log.Infow("notification permission not granted", "user_id", userID, "task_id", taskID)
		return false
	}

	id, err := s.notifier.ScheduleAt(fireAt, notify.Notification{
		UserID: userID,
		TaskID: taskID,
		Title:  "Lembrete de Tarefa",
		Body:   fmt.Sprintf("A tarefa \"%s\" vence em 1 hora!", title),
	})
	if err != nil {
		s.log.Warnw("schedule reminder", "task_id", taskID, "error", err)
		return false
	}
	s.log.Debugw("reminder scheduled", "task_id", taskID, "notification_id", id, "fire_at", fireAt)
	return true
}

// Cancel removes every pending reminder correlated with taskID. Missing reminders are fine.
func (s *ReminderScheduler) Cancel(_ context.Context, taskID string) {
	defer s.locks.lock(taskID)()
	s.cancelTask(taskID)
}

func (s *ReminderScheduler) cancelTask(taskID string) {
	s.cancelWhere(func(n notify.Scheduled) bool { return n.TaskID == taskID })
}

// CancelUser removes every pending reminder of a user.
func (s *ReminderScheduler) CancelUser(_ context.Context, userID uint) {
	s.cancelWhere(func(n notify.Scheduled) bool { return n.UserID == userID })
}

func (s *ReminderScheduler) cancelWhere(match func(notify.Scheduled) bool) {
	for _, pending := range s.notifier.ListScheduled() {
		if !match(pending) {
			continue
		}
		// Fired between list and cancel: nothing left to do.
		if err := s.notifier.Cancel(pending.ID); err != nil && !errors.Is(err, notify.ErrNotScheduled) {
			s.log.Warnw("cancel reminder", "task_id", pending.TaskID, "notification_id", pending.ID, "error", err)
		}
	}
}

// Reschedule is Cancel followed by Schedule, done as one step for the task.
func (s *ReminderScheduler) Reschedule(ctx context.Context, userID uint, taskID, title string, due time.Time) {
	defer s.locks.lock(taskID)()
	s.cancelTask(taskID)
	s.scheduleIfEnabled(ctx, userID, taskID, title, due)
}

// Sync re-derives the reminder from the stored task: cancel, then schedule only while open.
func (s *ReminderScheduler) Sync(ctx context.Context, task model.Task) {
	defer s.locks.lock(task.ID)()
	s.cancelTask(task.ID)
	if !task.Completed {
		s.scheduleIfEnabled(ctx, task.UserID, task.ID, task.Title, task.DueDate)
	}
}

// Arm schedules tasks already known to belong to users with notifications on.
func (s *ReminderScheduler) Arm(ctx context.Context, tasks []model.Task) int {
	armed := 0
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		if s.arm(ctx, task) {
			armed++
		}
	}
	return armed
}

func (s *ReminderScheduler) arm(ctx context.Context, task model.Task) bool {
	defer s.locks.lock(task.ID)()
	s.cancelTask(task.ID)
	return s.schedule(ctx, task.UserID, task.ID, task.Title, task.DueDate)
}

// RemindableLister finds open tasks whose owners have reminders switched on.
type RemindableLister interface {
	ListRemindable(ctx context.Context, after time.Time) ([]model.Task, error)
}

// Restore re-arms reminders after a restart, since pending notifications live in memory.
func (s *ReminderScheduler) Restore(ctx context.Context, tasks RemindableLister) (int, error) {
	open, err := tasks.ListRemindable(ctx, s.now().Add(ReminderOffset))
	if err != nil {
		return 0, fmt.Errorf("list remindable tasks: %w", err)
	}
	return s.Arm(ctx, open), nil
}
