package service

import (
	"context"
	"errors"
	"time"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/repository"
)

// ErrTaskNotFound means the task does not exist or belongs to someone else.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the task collection of the document store.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListByUser(ctx context.Context, userID uint) ([]model.Task, error)
	ListOpenDueAfter(ctx context.Context, userID uint, after time.Time) ([]model.Task, error)
	FindByID(ctx context.Context, userID uint, taskID string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	SetCompleted(ctx context.Context, userID uint, taskID string, completed bool) error
	Delete(ctx context.Context, userID uint, taskID string) error
	CountByUser(ctx context.Context, userID uint) (total, completed int64, err error)
}

// TaskService wraps task-related business logic and keeps reminders in step with stored tasks.
type TaskService struct {
	tasks     TaskStore
	reminders *ReminderScheduler
	now       func() time.Time
}

func NewTaskService(tasks TaskStore, reminders *ReminderScheduler, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{tasks: tasks, reminders: reminders, now: now}
}

// CreateTask validates, persists and arms the reminder. Invalid input never reaches the store.
func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	task, err := input.toTask(s.now())
	if err != nil {
		return nil, err
	}
	task.UserID = userID
	task.Completed = false

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.reminders.Schedule(ctx, userID, task.ID, task.Title, task.DueDate)
	return task, nil
}

// ListTasks returns the user's tasks in display order.
func (s *TaskService) ListTasks(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SortTasks(tasks), nil
}

func (s *TaskService) GetTask(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// UpdateTask overwrites the editable fields and re-derives the reminder.
func (s *TaskService) UpdateTask(ctx context.Context, userID uint, taskID string, input TaskInput) (*model.Task, error) {
	task, err := input.toTask(s.now())
	if err != nil {
		return nil, err
	}
	task.ID = taskID
	task.UserID = userID

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, notFound(err)
	}

	s.reminders.Sync(ctx, *task)
	return s.GetTask(ctx, userID, taskID)
}

// SetCompleted stores the flag. Completing cancels the reminder; reopening does not re-arm it.
func (s *TaskService) SetCompleted(ctx context.Context, userID uint, taskID string, completed bool) (*model.Task, error) {
	if err := s.tasks.SetCompleted(ctx, userID, taskID, completed); err != nil {
		return nil, notFound(err)
	}
	if completed {
		s.reminders.Cancel(ctx, taskID)
	}
	return s.GetTask(ctx, userID, taskID)
}

func (s *TaskService) ToggleCompleted(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.SetCompleted(ctx, userID, taskID, !task.Completed)
}

// DeleteTask removes a task and its pending reminder.
func (s *TaskService) DeleteTask(ctx context.Context, userID uint, taskID string) error {
	if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
		return notFound(err)
	}
	s.reminders.Cancel(ctx, taskID)
	return nil
}

// Dashboard builds the home screen for the current day.
func (s *TaskService) Dashboard(ctx context.Context, userID uint) (Dashboard, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(s.now(), tasks), nil
}

// Now is the service clock, shared with renderers.
func (s *TaskService) Now() time.Time {
	return s.now()
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
