package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/notify"
	"github.com/Motaplivia/tudinhoo/internal/repository"
)

type fakeNotifier struct {
	mu      sync.Mutex
	granted bool
	permErr error
	seq     int
	pending map[string]notify.Scheduled
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{granted: true, pending: make(map[string]notify.Scheduled)}
}

func (f *fakeNotifier) RequestPermission(context.Context, uint) (bool, error) {
	return f.granted, f.permErr
}

func (f *fakeNotifier) ScheduleAt(fireAt time.Time, n notify.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("n%d", f.seq)
	f.pending[id] = notify.Scheduled{ID: id, FireAt: fireAt, Notification: n}
	return id, nil
}

func (f *fakeNotifier) ListScheduled() []notify.Scheduled {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Scheduled, 0, len(f.pending))
	for _, item := range f.pending {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b notify.Scheduled) int { return a.FireAt.Compare(b.FireAt) })
	return out
}

func (f *fakeNotifier) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[id]; !ok {
		return notify.ErrNotScheduled
	}
	delete(f.pending, id)
	return nil
}

func (f *fakeNotifier) forTask(taskID string) []notify.Scheduled {
	var out []notify.Scheduled
	for _, item := range f.ListScheduled() {
		if item.TaskID == taskID {
			out = append(out, item)
		}
	}
	return out
}

type memPrefs struct {
	prefs map[uint]model.Preferences
	err   error
}

func newMemPrefs() *memPrefs {
	return &memPrefs{prefs: make(map[uint]model.Preferences)}
}

func (m *memPrefs) Get(_ context.Context, userID uint) (model.Preferences, error) {
	if m.err != nil {
		return model.Preferences{}, m.err
	}
	p, ok := m.prefs[userID]
	if !ok {
		return model.Preferences{UserID: userID}, nil
	}
	return p, nil
}

func (m *memPrefs) Save(_ context.Context, p *model.Preferences) error {
	m.prefs[p.UserID] = *p
	return nil
}

func (m *memPrefs) enable(userID uint) {
	m.prefs[userID] = model.Preferences{UserID: userID, NotificationsEnabled: true}
}

// memTasks is a TaskStore that counts every call.
type memTasks struct {
	seq   int
	calls int
	tasks map[string]model.Task
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[string]model.Task)}
}

func (m *memTasks) Create(_ context.Context, task *model.Task) error {
	m.calls++
	m.seq++
	task.ID = fmt.Sprintf("t%d", m.seq)
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTasks) ListByUser(_ context.Context, userID uint) ([]model.Task, error) {
	m.calls++
	var out []model.Task
	for i := 1; i <= m.seq; i++ {
		if task, ok := m.tasks[fmt.Sprintf("t%d", i)]; ok && task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memTasks) ListOpenDueAfter(ctx context.Context, userID uint, after time.Time) ([]model.Task, error) {
	all, _ := m.ListByUser(ctx, userID)
	var out []model.Task
	for _, task := range all {
		if !task.Completed && task.DueDate.After(after) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memTasks) FindByID(_ context.Context, userID uint, taskID string) (*model.Task, error) {
	m.calls++
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &task, nil
}

func (m *memTasks) Update(_ context.Context, task *model.Task) error {
	m.calls++
	old, ok := m.tasks[task.ID]
	if !ok || old.UserID != task.UserID {
		return repository.ErrNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTasks) SetCompleted(_ context.Context, userID uint, taskID string, completed bool) error {
	m.calls++
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return repository.ErrNotFound
	}
	task.Completed = completed
	m.tasks[taskID] = task
	return nil
}

func (m *memTasks) Delete(_ context.Context, userID uint, taskID string) error {
	m.calls++
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *memTasks) CountByUser(_ context.Context, userID uint) (int64, int64, error) {
	m.calls++
	var total, completed int64
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		total++
		if task.Completed {
			completed++
		}
	}
	return total, completed, nil
}

func (m *memTasks) ListRemindable(_ context.Context, after time.Time) ([]model.Task, error) {
	var out []model.Task
	for _, task := range m.tasks {
		if !task.Completed && task.DueDate.After(after) {
			out = append(out, task)
		}
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestReminders(now time.Time) (*ReminderScheduler, *fakeNotifier, *memPrefs) {
	notifier := newFakeNotifier()
	prefs := newMemPrefs()
	return NewReminderScheduler(notifier, prefs, zap.NewNop().Sugar(), fixedClock(now)), notifier, prefs
}
