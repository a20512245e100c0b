package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// TaskRepository handles CRUD for tasks. Every query is scoped by user id.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskColumns are written by a full update; id, user and timestamps are not user-editable.
var taskColumns = []string{"title", "description", "urgency", "due_date", "is_full_day", "start_time", "end_time", "completed"}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", translate(err))
	}
	return nil
}

// ListByUser returns the user's tasks ordered by due date.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return decodeTasks(tasks)
}

// ListOpenDueAfter returns the user's incomplete tasks due after the given instant.
func (r *TaskRepository) ListOpenDueAfter(ctx context.Context, userID uint, after time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND due_date > ?", userID, false, after).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return decodeTasks(tasks)
}

// ListRemindable returns incomplete tasks due after the given instant whose owners have reminders on.
func (r *TaskRepository) ListRemindable(ctx context.Context, after time.Time) ([]model.Task, error) {
	var tasks []model.Task
	enabled := r.db.Model(&model.Preferences{}).Select("user_id").Where("notifications_enabled = ?", true)
	if err := r.db.WithContext(ctx).
		Where("completed = ? AND due_date > ? AND user_id IN (?)", false, after, enabled).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list remindable tasks: %w", err)
	}
	return decodeTasks(tasks)
}

func (r *TaskRepository) FindByID(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	if err := decodeTask(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update overwrites the editable fields. Last write wins; there is no version check.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", task.UserID, task.ID).
		Select(taskColumns).
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) SetCompleted(ctx context.Context, userID uint, taskID string, completed bool) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update("completed", completed)
	if res.Error != nil {
		return fmt.Errorf("complete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, taskID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser returns total and completed task counts.
func (r *TaskRepository) CountByUser(ctx context.Context, userID uint) (total, completed int64, err error) {
	db := r.db.WithContext(ctx).Model(&model.Task{})
	if err = db.Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	if err = r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return total, completed, nil
}

func decodeTasks(tasks []model.Task) ([]model.Task, error) {
	for i := range tasks {
		if err := decodeTask(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// decodeTask turns a stored row into a fully typed task or fails.
func decodeTask(task *model.Task) error {
	urgency, err := model.ParseUrgency(string(task.Urgency))
	if err != nil {
		return fmt.Errorf("%w: task %s: %v", ErrMalformedRecord, task.ID, err)
	}
	task.Urgency = urgency
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: task %s: empty title", ErrMalformedRecord, task.ID)
	}
	if task.DueDate.IsZero() {
		return fmt.Errorf("%w: task %s: missing due date", ErrMalformedRecord, task.ID)
	}
	if task.IsFullDay {
		task.StartTime, task.EndTime = "", ""
	}
	return nil
}
