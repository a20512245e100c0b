package service

import (
	"fmt"
	"time"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// Bucket groups a due date relative to today.
type Bucket string

const (
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketUpcoming Bucket = "upcoming"
	// BucketPast marks overdue tasks that are still open.
	BucketPast Bucket = "past"
	// BucketElapsed holds finished tasks dated before today.
	BucketElapsed Bucket = "elapsed"
)

// DateOnly strips the time of day in loc. It returns a new value.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// BucketFor classifies due relative to now by calendar date in now's location.
func BucketFor(now, due time.Time, completed bool) Bucket {
	loc := now.Location()
	today := DateOnly(now, loc)
	day := DateOnly(due, loc)
	switch {
	case day.Equal(today):
		return BucketToday
	case day.Equal(today.AddDate(0, 0, 1)):
		return BucketTomorrow
	case day.After(today):
		return BucketUpcoming
	case completed:
		return BucketElapsed
	default:
		return BucketPast
	}
}

// DueLabel renders "Hoje", "Amanhã" or dd/mm/yy.
func DueLabel(now, due time.Time) string {
	switch BucketFor(now, due, false) {
	case BucketToday:
		return "Hoje"
	case BucketTomorrow:
		return "Amanhã"
	default:
		return due.In(now.Location()).Format("02/01/06")
	}
}

// IsOverdue reports an open task whose due instant has passed.
func IsOverdue(now time.Time, task model.Task) bool {
	return !task.Completed && now.After(task.DueDate)
}

// Stats are the dashboard counters.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Dashboard is the home screen: counters plus today's and coming tasks.
type Dashboard struct {
	Stats    Stats        `json:"stats"`
	Today    []model.Task `json:"today"`
	Upcoming []model.Task `json:"upcoming"`
}

// BuildDashboard splits tasks into today and upcoming (tomorrow onwards), each sorted by CompareTasks.
func BuildDashboard(now time.Time, tasks []model.Task) Dashboard {
	sorted := SortTasks(tasks)
	dash := Dashboard{
		Today:    []model.Task{},
		Upcoming: []model.Task{},
	}
	for _, task := range sorted {
		dash.Stats.Total++
		if task.Completed {
			dash.Stats.Completed++
		}
		switch BucketFor(now, task.DueDate, task.Completed) {
		case BucketToday:
			dash.Today = append(dash.Today, task)
		case BucketTomorrow, BucketUpcoming:
			dash.Upcoming = append(dash.Upcoming, task)
		}
	}
	dash.Stats.Pending = dash.Stats.Total - dash.Stats.Completed
	return dash
}

// CompletionRate is completed/total as a whole percentage.
func (s Stats) CompletionRate() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

func (s Stats) String() string {
	return fmt.Sprintf("%d total, %d concluídas, %d pendentes", s.Total, s.Completed, s.Pending)
}
