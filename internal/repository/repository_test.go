package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/repository"
	"github.com/Motaplivia/tudinhoo/internal/repository/repotest"
)

func createUser(t *testing.T, users *repository.UserRepository, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "Ana", Email: email, PasswordHash: "x"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestTaskRepositoryScopesByUser(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)

	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	due := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	task := &model.Task{UserID: alice.ID, Title: "Pay bill", Urgency: model.UrgencyHigh, DueDate: due}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected store-assigned id")
	}

	if _, err := tasks.FindByID(ctx, bob.ID, task.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	list, err := tasks.ListByUser(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no tasks for bob, got %d", len(list))
	}

	got, err := tasks.FindByID(ctx, alice.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Pay bill" || got.Urgency != model.UrgencyHigh || !got.DueDate.Equal(due) {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestTaskRepositoryUpdateAndDelete(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	user := createUser(t, users, "ana@example.com")

	task := &model.Task{UserID: user.ID, Title: "Draft", DueDate: time.Now(), StartTime: "09:00", EndTime: "10:00"}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatal(err)
	}

	task.Title = "Final"
	task.IsFullDay = true
	task.StartTime, task.EndTime = "", ""
	task.Completed = true
	if err := tasks.Update(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := tasks.FindByID(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Final" || !got.Completed || got.StartTime != "" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := tasks.SetCompleted(ctx, user.ID, task.ID, false); err != nil {
		t.Fatal(err)
	}
	total, completed, err := tasks.CountByUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || completed != 0 {
		t.Fatalf("unexpected counts total=%d completed=%d", total, completed)
	}

	if err := tasks.Delete(ctx, user.ID, task.ID); err != nil {
		t.Fatal(err)
	}
	if err := tasks.Delete(ctx, user.ID, task.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	missing := &model.Task{ID: task.ID, UserID: user.ID, Title: "x", DueDate: time.Now()}
	if err := tasks.Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of deleted task, got %v", err)
	}
}

func TestTaskRepositoryDecodesLegacyUrgency(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	user := createUser(t, repository.NewUserRepository(db), "legacy@example.com")
	tasks := repository.NewTaskRepository(db)

	task := &model.Task{UserID: user.ID, Title: "Old", Urgency: model.Urgency("urgente"), DueDate: time.Now()}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatal(err)
	}
	got, err := tasks.FindByID(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Urgency != model.UrgencyUrgent {
		t.Fatalf("expected legacy urgency decoded to urgent, got %q", got.Urgency)
	}

	bad := &model.Task{UserID: user.ID, Title: "Bad", Urgency: model.Urgency("someday"), DueDate: time.Now()}
	if err := tasks.Create(ctx, bad); err != nil {
		t.Fatal(err)
	}
	if _, err := tasks.FindByID(ctx, user.ID, bad.ID); !errors.Is(err, repository.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestListRemindableHonoursPreference(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	prefs := repository.NewPreferenceRepository(db)

	on := createUser(t, users, "on@example.com")
	off := createUser(t, users, "off@example.com")
	if err := prefs.Save(ctx, &model.Preferences{UserID: on.ID, NotificationsEnabled: true}); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for _, task := range []*model.Task{
		{UserID: on.ID, Title: "future", DueDate: now.Add(3 * time.Hour)},
		{UserID: on.ID, Title: "done", DueDate: now.Add(3 * time.Hour), Completed: true},
		{UserID: on.ID, Title: "past", DueDate: now.Add(-3 * time.Hour)},
		{UserID: off.ID, Title: "muted", DueDate: now.Add(3 * time.Hour)},
	} {
		if err := tasks.Create(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	list, err := tasks.ListRemindable(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "future" {
		t.Fatalf("unexpected remindable tasks: %+v", list)
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := repotest.NewDB(t)
	users := repository.NewUserRepository(db)
	createUser(t, users, "dup@example.com")

	err := users.Create(context.Background(), &model.User{Email: "dup@example.com", PasswordHash: "y"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPreferenceRepositoryDefaultsAndWriteThrough(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	prefs := repository.NewPreferenceRepository(db)

	got, err := prefs.Get(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if got.DarkModeEnabled || got.NotificationsEnabled {
		t.Fatalf("expected false defaults, got %+v", got)
	}

	got.DarkModeEnabled = true
	if err := prefs.Save(ctx, &got); err != nil {
		t.Fatal(err)
	}
	got.DarkModeEnabled = false
	got.NotificationsEnabled = true
	if err := prefs.Save(ctx, &got); err != nil {
		t.Fatal(err)
	}

	again, err := prefs.Get(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if again.DarkModeEnabled || !again.NotificationsEnabled {
		t.Fatalf("expected last write to win, got %+v", again)
	}
}

func TestSessionRepositoryLinks(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	sessions := repository.NewSessionRepository(db)

	if _, err := sessions.UserIDByChat(ctx, 100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := sessions.Link(ctx, 100, 1, "ana"); err != nil {
		t.Fatal(err)
	}
	if err := sessions.Link(ctx, 100, 2, "bia"); err != nil {
		t.Fatal(err)
	}
	id, err := sessions.UserIDByChat(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if id != 2 {
		t.Fatalf("expected relink to user 2, got %d", id)
	}
	chats, err := sessions.ChatIDsByUser(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0] != 100 {
		t.Fatalf("unexpected chats: %v", chats)
	}
	links, err := sessions.ListLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].ChatID != 100 || links[0].UserID != 2 {
		t.Fatalf("unexpected links: %+v", links)
	}
	if err := sessions.Unlink(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.UserIDByChat(ctx, 100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after unlink, got %v", err)
	}
}

func TestSessionRepositoryPurgeResets(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	sessions := repository.NewSessionRepository(db)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	resets := []*model.PasswordReset{
		{UserID: 1, TokenHash: "live", ExpiresAt: now.Add(time.Hour)},
		{UserID: 1, TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)},
		{UserID: 1, TokenHash: "used", ExpiresAt: now.Add(time.Hour), UsedAt: &used},
	}
	for _, reset := range resets {
		if err := sessions.CreateReset(ctx, reset); err != nil {
			t.Fatal(err)
		}
	}

	purged, err := sessions.PurgeResets(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged resets, got %d", purged)
	}
	if _, err := sessions.FindReset(ctx, "live"); err != nil {
		t.Fatalf("live reset must survive: %v", err)
	}
	if _, err := sessions.FindReset(ctx, "expired"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected expired reset gone, got %v", err)
	}
}
