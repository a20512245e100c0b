package service

import (
	"slices"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// CompareTasks is the task ordering policy: incomplete before completed, then urgency
// (urgent, high, medium, low), then earlier due date first. Returns <0, 0 or >0.
func CompareTasks(a, b model.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	if ra, rb := a.Urgency.Rank(), b.Urgency.Rank(); ra != rb {
		return ra - rb
	}
	return a.DueDate.Compare(b.DueDate)
}

// SortTasks returns a sorted copy. Full ties keep their input order.
func SortTasks(tasks []model.Task) []model.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, CompareTasks)
	return sorted
}
