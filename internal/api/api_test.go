package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/api"
	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/notify"
	"github.com/Motaplivia/tudinhoo/internal/repository"
	"github.com/Motaplivia/tudinhoo/internal/repository/repotest"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// countingTasks counts store writes.
type countingTasks struct {
	*repository.TaskRepository
	creates int
}

func (c *countingTasks) Create(ctx context.Context, task *model.Task) error {
	c.creates++
	return c.TaskRepository.Create(ctx, task)
}

// everyoneSink reaches every user and drops the notification.
type everyoneSink struct{}

func (everyoneSink) Name() string { return "test" }

func (everyoneSink) Reachable(context.Context, uint) (bool, error) { return true, nil }

func (everyoneSink) Deliver(context.Context, notify.Notification) error { return nil }

type testEnv struct {
	app       *api.Server
	tasks     *countingTasks
	scheduler *notify.Scheduler
	mailer    *captureMailer
}

type captureMailer struct {
	last string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, _, token string) error {
	m.last = token
	return nil
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	db := repotest.NewDB(t)
	log := zap.NewNop().Sugar()
	reg := prometheus.NewRegistry()

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	prefs := repository.NewPreferenceRepository(db)
	tasks := &countingTasks{TaskRepository: repository.NewTaskRepository(db)}

	scheduler := notify.NewScheduler(time.UTC, log, notify.NewMetrics(reg), everyoneSink{})
	reminders := service.NewReminderScheduler(scheduler, prefs, log, nil)
	mailer := &captureMailer{}

	server := api.New(api.Deps{
		Auth:           auth.NewService(users, sessions, mailer, auth.NewTokens(testSecret, time.Hour, nil), log),
		Tasks:          service.NewTaskService(tasks, reminders, nil),
		Profiles:       service.NewProfileService(users, tasks),
		Preferences:    service.NewPreferenceService(prefs, tasks, reminders, log),
		Push:           repository.NewPushRepository(db),
		VAPIDPublicKey: "BPUBLIC",
		Gatherer:       reg,
		Log:            log,
	})
	return &testEnv{app: server, tasks: tasks, scheduler: scheduler, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": email, "password": "secret1", "confirmPassword": "secret1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var session auth.Session
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatal(err)
	}
	if session.Token == "" {
		t.Fatal("expected token in response")
	}
	return session.Token
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return payload.Error
}

func TestAuthFlow(t *testing.T) {
	env := setupTestApp(t)
	token := env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	if resp.StatusCode != http.StatusConflict || errorMessage(t, body) != "Este email já está em uso" {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope12"})
	if resp.StatusCode != http.StatusUnauthorized || errorMessage(t, body) != "Email ou senha incorretos" {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/tasks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/tasks", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := setupTestApp(t)
	env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "bia@example.com"})
	if resp.StatusCode != http.StatusNotFound || errorMessage(t, body) != "Não existe uma conta com este email" {
		t.Fatalf("unknown email: got %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ana@example.com"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": env.mailer.last, "password": "novasenha"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "novasenha"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login with new password, got %d", resp.StatusCode)
	}
}

func TestCreateTaskWithEmptyTitleMakesNoStoreCall(t *testing.T) {
	env := setupTestApp(t)
	token := env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/tasks", token, map[string]any{"title": "", "isFullDay": true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, body); msg != "O título da tarefa é obrigatório" {
		t.Fatalf("unexpected message %q", msg)
	}
	if env.tasks.creates != 0 {
		t.Fatalf("expected no store call, got %d", env.tasks.creates)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := setupTestApp(t)
	token := env.register(t, "ana@example.com")
	other := env.register(t, "bia@example.com")

	resp, _ := env.do(t, http.MethodPut, "/api/preferences", token, map[string]bool{"notificationsEnabled": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preferences: expected 200, got %d", resp.StatusCode)
	}

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	resp, body := env.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "Pagar conta", "urgency": "high", "dueDate": due, "startTime": "09:00", "endTime": "10:00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created model.Task
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Urgency != model.UrgencyHigh {
		t.Fatalf("unexpected task %+v", created)
	}

	pending := env.scheduler.ListScheduled()
	if len(pending) != 1 || pending[0].TaskID != created.ID || !pending[0].FireAt.Equal(due.Add(-time.Hour)) {
		t.Fatalf("expected one reminder at due-1h, got %+v", pending)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/tasks/"+created.ID, other, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("other user must get 404, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPatch, "/api/tasks/"+created.ID+"/completed", token, map[string]bool{"completed": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", resp.StatusCode, body)
	}
	if len(env.scheduler.ListScheduled()) != 0 {
		t.Fatal("completing must cancel the reminder")
	}

	resp, body = env.do(t, http.MethodGet, "/api/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", resp.StatusCode)
	}
	var dash service.Dashboard
	if err := json.Unmarshal(body, &dash); err != nil {
		t.Fatal(err)
	}
	if dash.Stats.Total != 1 || dash.Stats.Completed != 1 || len(dash.Upcoming) != 1 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestProfileAndPreferences(t *testing.T) {
	env := setupTestApp(t)
	token := env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/preferences", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var prefs model.Preferences
	if err := json.Unmarshal(body, &prefs); err != nil {
		t.Fatal(err)
	}
	if prefs.DarkModeEnabled || prefs.NotificationsEnabled {
		t.Fatalf("defaults must be false, got %+v", prefs)
	}

	resp, body = env.do(t, http.MethodPut, "/api/profile", token, map[string]string{"name": "Ana Maria"})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Ana Maria") {
		t.Fatalf("rename: got %d: %s", resp.StatusCode, body)
	}
	resp, _ = env.do(t, http.MethodPut, "/api/profile", token, map[string]string{"name": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400, got %d", resp.StatusCode)
	}
}

func TestPushAndMetrics(t *testing.T) {
	env := setupTestApp(t)
	token := env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/push/vapid-public-key", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "BPUBLIC") {
		t.Fatalf("vapid key: got %d: %s", resp.StatusCode, body)
	}

	sub := map[string]any{"endpoint": "https://push.example.com/abc", "keys": map[string]string{"p256dh": "k", "auth": "a"}}
	resp, _ = env.do(t, http.MethodPost, "/api/push/subscribe", token, sub)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("subscribe: expected 201, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/push/subscribe", token, map[string]string{"endpoint": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("incomplete subscription: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/push/subscribe", token, map[string]string{"endpoint": "https://push.example.com/abc"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unsubscribe: expected 204, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "tudinho_reminders_pending") {
		t.Fatalf("metrics: got %d: %s", resp.StatusCode, body)
	}
}
