package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// DigestService builds the morning summary sent to linked Telegram chats.
type DigestService struct {
	tasks TaskStore
}

func NewDigestService(tasks TaskStore) *DigestService {
	return &DigestService{tasks: tasks}
}

// Digest renders open tasks for the user as Telegram HTML. ok is false when nothing is open.
func (s *DigestService) Digest(ctx context.Context, user model.User, now time.Time) (text string, ok bool, err error) {
	tasks, err := s.tasks.ListByUser(ctx, user.ID)
	if err != nil {
		return "", false, err
	}

	var overdue, today, later []model.Task
	for _, task := range SortTasks(tasks) {
		if task.Completed {
			continue
		}
		switch BucketFor(now, task.DueDate, false) {
		case BucketPast:
			overdue = append(overdue, task)
		case BucketToday:
			today = append(today, task)
		default:
			later = append(later, task)
		}
	}
	if len(overdue)+len(today)+len(later) == 0 {
		return "", false, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Bom dia, %s!</b>\n", html.EscapeString(firstName(user.Name)))
	fmt.Fprintf(&b, "🗓 %s\n", now.Format("02/01/2006"))

	writeSection(&b, "⚠️ <b>Atrasadas</b>", overdue, now)
	writeSection(&b, "🔥 <b>Para hoje</b>", today, now)
	writeSection(&b, "📅 <b>Próximas</b>", later, now)

	return strings.TrimSpace(b.String()), true, nil
}

func writeSection(b *strings.Builder, header string, tasks []model.Task, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	b.WriteString("\n" + header + "\n")
	for _, task := range tasks {
		b.WriteString(FormatTaskLine(task, now))
	}
}

// FormatTaskLine renders one task as a Telegram HTML bullet.
func FormatTaskLine(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.Completed:
		icon = "✅"
	case IsOverdue(now, task):
		icon = "⚠️"
	case task.DueDate.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	fmt.Fprintf(&sb, "%s %s <i>(%s)</i>", icon, html.EscapeString(strings.TrimSpace(task.Title)), task.Urgency.Label())
	fmt.Fprintf(&sb, "\n   ⏰ %s", DueLabel(now, task.DueDate))
	if task.IsFullDay {
		sb.WriteString(" · dia inteiro")
	} else if task.StartTime != "" {
		fmt.Fprintf(&sb, " · %s–%s", task.StartTime, task.EndTime)
	}
	if task.Description != "" {
		fmt.Fprintf(&sb, "\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Usuário"
	}
	return fields[0]
}
