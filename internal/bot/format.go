package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

// fullDayHour is the local hour used as due time of full-day tasks.
const fullDayHour = 9

var errBadDate = errors.New("bad date")

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// parseDay reads hoje, amanhã, dd/mm, dd/mm/aaaa or aaaa-mm-dd as a calendar day in now's location.
func parseDay(text string, now time.Time) (time.Time, error) {
	loc := now.Location()
	today := service.DateOnly(now, loc)
	value := normalizeInput(text)
	switch value {
	case "hoje":
		return today, nil
	case "amanhã", "amanha":
		return today.AddDate(0, 0, 1), nil
	}

	for _, layout := range []string{"2/1/2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("2/1", value, loc); err == nil {
		day := time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if day.Day() != t.Day() {
			return time.Time{}, errBadDate
		}
		return day, nil
	}
	return time.Time{}, errBadDate
}

// parseClock accepts 9, 9:30, 09:30, 9h or 9h30 and returns HH:MM.
func parseClock(text string) (string, bool) {
	value := normalizeInput(text)
	for _, layout := range []string{"15:04", "15h04", "15h", "15"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

// dueAt combines a day with the start time. Full-day tasks fall due at fullDayHour.
func dueAt(day time.Time, fullDay bool, start string) time.Time {
	hour, minute := fullDayHour, 0
	if !fullDay {
		if t, err := time.Parse("15:04", start); err == nil {
			hour, minute = t.Hour(), t.Minute()
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func formatNumberedTask(task model.Task, n int, now time.Time) string {
	return fmt.Sprintf("<b>%d.</b> %s", n, service.FormatTaskLine(task, now))
}

func formatTaskSaved(task model.Task, now time.Time, created bool) string {
	var b strings.Builder
	if created {
		b.WriteString("✅ <b>Tarefa criada</b>\n")
	} else {
		b.WriteString("✏️ <b>Tarefa atualizada</b>\n")
	}
	fmt.Fprintf(&b, "• <b>Título:</b> %s\n", escape(normalizeTitle(task.Title)))
	if task.Description != "" {
		fmt.Fprintf(&b, "• <b>Descrição:</b> %s\n", escape(task.Description))
	}
	fmt.Fprintf(&b, "• <b>Urgência:</b> %s\n", task.Urgency.Label())
	fmt.Fprintf(&b, "• <b>Data:</b> %s", task.DueDate.In(now.Location()).Format("02/01/2006"))
	if task.IsFullDay {
		b.WriteString(" (dia inteiro)\n")
	} else {
		fmt.Fprintf(&b, " das %s às %s\n", task.StartTime, task.EndTime)
	}
	if reminder := service.FireTime(task.DueDate); !task.Completed && reminder.After(now) {
		fmt.Fprintf(&b, "🔔 Lembrete às %s, se as notificações estiverem ativas\n", reminder.In(now.Location()).Format("15:04 de 02/01"))
	}
	return strings.TrimSpace(b.String())
}

func formatHome(name string, dash service.Dashboard, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 <b>Olá, %s!</b>\n", escape(strings.TrimSpace(name)))
	fmt.Fprintf(&b, "📊 %d tarefas · %d concluídas · %d pendentes\n", dash.Stats.Total, dash.Stats.Completed, dash.Stats.Pending)

	b.WriteString("\n🔥 <b>Hoje</b>\n")
	if len(dash.Today) == 0 {
		b.WriteString("Nada para hoje.\n")
	}
	for _, task := range dash.Today {
		b.WriteString(service.FormatTaskLine(task, now))
	}

	b.WriteString("\n📅 <b>Próximas</b>\n")
	if len(dash.Upcoming) == 0 {
		b.WriteString("Nenhuma tarefa futura.\n")
	}
	for _, task := range dash.Upcoming {
		b.WriteString(service.FormatTaskLine(task, now))
	}
	return strings.TrimSpace(b.String())
}

func formatProfile(profile *service.Profile, prefs model.Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\n", escape(profile.User.Name))
	fmt.Fprintf(&b, "✉️ %s\n\n", escape(profile.User.Email))
	fmt.Fprintf(&b, "📊 %d tarefas · %d concluídas · %d pendentes\n", profile.Stats.Total, profile.Stats.Completed, profile.Stats.Pending)
	fmt.Fprintf(&b, "🎯 Taxa de conclusão: %d%%\n\n", profile.CompletionRate)
	fmt.Fprintf(&b, "🌙 Modo escuro: %s (/tema)\n", onOff(prefs.DarkModeEnabled))
	fmt.Fprintf(&b, "🔔 Notificações: %s (/notificacoes)", onOff(prefs.NotificationsEnabled))
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "ativado"
	}
	return "desativado"
}
