package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

func TestDigest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	store := newMemTasks()
	for _, task := range []model.Task{
		{UserID: 1, Title: "Pagar <conta>", Urgency: model.UrgencyUrgent, DueDate: now.Add(4 * time.Hour), StartTime: "12:00", EndTime: "13:00"},
		{UserID: 1, Title: "Relatório", Urgency: model.UrgencyHigh, DueDate: now.Add(-30 * time.Hour), IsFullDay: true},
		{UserID: 1, Title: "Feito", DueDate: now, Completed: true},
		{UserID: 1, Title: "Viagem", DueDate: now.Add(10 * 24 * time.Hour), IsFullDay: true},
	} {
		task := task
		if err := store.Create(ctx, &task); err != nil {
			t.Fatal(err)
		}
	}
	digest := NewDigestService(store)

	text, ok, err := digest.Digest(ctx, model.User{ID: 1, Name: "Ana Souza"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a digest")
	}
	for _, want := range []string{"Bom dia, Ana!", "Atrasadas", "Relatório", "Pagar &lt;conta&gt;", "12:00–13:00", "Viagem", "20/06/24"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Feito") {
		t.Error("completed tasks must not appear")
	}
	if strings.Index(text, "Atrasadas") > strings.Index(text, "Para hoje") {
		t.Error("overdue section must come first")
	}

	if _, ok, _ := digest.Digest(ctx, model.User{ID: 2}, now); ok {
		t.Fatal("expected no digest for user without tasks")
	}
}
