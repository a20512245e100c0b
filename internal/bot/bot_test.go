package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/notify"
	"github.com/Motaplivia/tudinhoo/internal/repository"
	"github.com/Motaplivia/tudinhoo/internal/repository/repotest"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var botNow = time.Date(2030, 6, 10, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

// texts returns every message sent since the last call.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, msg := range f.sent {
		out = append(out, msg.Text)
	}
	f.sent = nil
	return out
}

func (f *fakeAPI) deletions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if _, ok := req.(tgbotapi.DeleteMessageConfig); ok {
			n++
		}
	}
	return n
}

type nopMailer struct {
	code string
}

func (m *nopMailer) SendPasswordReset(_ context.Context, _, _, code string) error {
	m.code = code
	return nil
}

type botEnv struct {
	bot       *Bot
	api       *fakeAPI
	tasks     *repository.TaskRepository
	sessions  *repository.SessionRepository
	scheduler *notify.Scheduler
	mailer    *nopMailer
	nextMsg   int
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()
	db := repotest.NewDB(t)
	log := zap.NewNop().Sugar()
	clock := func() time.Time { return botNow }

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	prefs := repository.NewPreferenceRepository(db)
	tasks := repository.NewTaskRepository(db)

	scheduler := notify.NewScheduler(time.UTC, log, notify.NewMetrics(prometheus.NewRegistry()))
	reminders := service.NewReminderScheduler(scheduler, prefs, log, clock)
	mailer := &nopMailer{}
	api := &fakeAPI{}

	b := New(api, Deps{
		Auth:        auth.NewService(users, sessions, mailer, auth.NewTokens(testSecret, time.Hour, clock), log),
		Tasks:       service.NewTaskService(tasks, reminders, clock),
		Profiles:    service.NewProfileService(users, tasks),
		Preferences: service.NewPreferenceService(prefs, tasks, reminders, log),
		Digest:      service.NewDigestService(tasks),
		Sessions:    sessions,
		Location:    time.UTC,
		Log:         log,
	})
	scheduler.AddSink(b.Sink())
	return &botEnv{bot: b, api: api, tasks: tasks, sessions: sessions, scheduler: scheduler, mailer: mailer}
}

// say delivers text from chatID and returns what the bot answered.
func (e *botEnv) say(chatID int64, text string) []string {
	e.nextMsg++
	msg := &tgbotapi.Message{
		MessageID: e.nextMsg,
		From:      &tgbotapi.User{ID: chatID, FirstName: "Ana", UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	return e.api.texts()
}

func (e *botEnv) click(chatID int64, data string) []string {
	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
		Data:    data,
	}})
	return e.api.texts()
}

func (e *botEnv) register(t *testing.T, chatID int64, email string) {
	t.Helper()
	e.say(chatID, "/cadastro")
	e.say(chatID, "Ana Souza")
	e.say(chatID, email)
	e.say(chatID, "secret1")
	replies := e.say(chatID, "secret1")
	expectReply(t, replies, "Conta criada")
}

func expectReply(t *testing.T, replies []string, want string) {
	t.Helper()
	for _, r := range replies {
		if strings.Contains(r, want) {
			return
		}
	}
	t.Fatalf("no reply contains %q: %q", want, replies)
}

func (e *botEnv) userTasks(t *testing.T, chatID int64) []model.Task {
	t.Helper()
	userID, err := e.sessions.UserIDByChat(context.Background(), chatID)
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := e.tasks.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	return tasks
}

func TestCommandsRequireSignIn(t *testing.T) {
	env := newBotEnv(t)
	expectReply(t, env.say(1, "/tarefas"), "Você precisa entrar primeiro")
	expectReply(t, env.say(1, "📋 Tarefas"), "Você precisa entrar primeiro")
	expectReply(t, env.say(1, "/ajuda"), "Comandos")
}

func TestRegisterLinksChatAndHidesPasswords(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")

	if _, err := env.sessions.UserIDByChat(context.Background(), 10); err != nil {
		t.Fatalf("chat not linked: %v", err)
	}
	if got := env.api.deletions(); got != 2 {
		t.Fatalf("expected both password messages deleted, got %d", got)
	}
	expectReply(t, env.say(10, "/perfil"), "ana@example.com")
}

func TestRegisterRetriesOnMismatch(t *testing.T) {
	env := newBotEnv(t)
	env.say(10, "/cadastro")
	env.say(10, "Ana")
	env.say(10, "ana@example.com")
	env.say(10, "secret1")
	expectReply(t, env.say(10, "secret2"), "Digite a senha novamente")
	env.say(10, "secret1")
	expectReply(t, env.say(10, "secret1"), "Conta criada")
}

func TestLoginAndLogout(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")

	expectReply(t, env.say(10, "/sair"), "Você saiu")
	expectReply(t, env.say(10, "/tarefas"), "Você precisa entrar primeiro")

	env.say(10, "/entrar")
	env.say(10, "ana@example.com")
	expectReply(t, env.say(10, "errada"), "Email ou senha incorretos")
	expectReply(t, env.say(10, "secret1"), "Você entrou")
}

func TestForgotPasswordFlow(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")
	env.say(10, "/sair")

	env.say(20, "/esqueci")
	expectReply(t, env.say(20, "ana@example.com"), "Enviamos um código")
	if env.mailer.code == "" {
		t.Fatal("expected a reset code to be mailed")
	}
	env.say(20, env.mailer.code)
	expectReply(t, env.say(20, "novasenha"), "Senha alterada")

	env.say(20, "/entrar")
	env.say(20, "ana@example.com")
	expectReply(t, env.say(20, "novasenha"), "Você entrou")
}

func TestTaskLifecycle(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")
	expectReply(t, env.say(10, "/notificacoes"), "Notificações ativadas")

	env.say(10, "/nova")
	env.say(10, "Pagar conta")
	env.say(10, "⏭️ Pular")
	expectReply(t, env.say(10, "Urgente"), "Para quando")
	env.say(10, "amanhã")
	env.say(10, "Não")
	env.say(10, "14:00")
	replies := env.say(10, "15h")
	expectReply(t, replies, "Tarefa criada")
	expectReply(t, replies, "<b>1.</b>")

	tasks := env.userTasks(t, 10)
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	task := tasks[0]
	wantDue := time.Date(2030, 6, 11, 14, 0, 0, 0, time.UTC)
	if task.Title != "Pagar conta" || task.Urgency != model.UrgencyUrgent || !task.DueDate.Equal(wantDue) || task.EndTime != "15:00" {
		t.Fatalf("unexpected task: %+v", task)
	}
	pending := env.scheduler.ListScheduled()
	if len(pending) != 1 || !pending[0].FireAt.Equal(wantDue.Add(-time.Hour)) || pending[0].TaskID != task.ID {
		t.Fatalf("expected reminder at 13:00, got %+v", pending)
	}

	expectReply(t, env.say(10, "/concluir 1"), "concluída")
	if len(env.scheduler.ListScheduled()) != 0 {
		t.Fatal("completing must cancel the reminder")
	}
	expectReply(t, env.click(10, cbReopenPrefix+task.ID), "reaberta")
	if len(env.scheduler.ListScheduled()) != 0 {
		t.Fatal("reopening must not re-arm the reminder")
	}

	expectReply(t, env.say(10, "/excluir 1"), "Excluir a tarefa")
	expectReply(t, env.say(10, "talvez"), "Confirme ou cancele")
	expectReply(t, env.say(10, btnConfirm), "excluída")
	if len(env.userTasks(t, 10)) != 0 {
		t.Fatal("task should be gone")
	}
	expectReply(t, env.say(10, "/concluir 1"), "Tarefa não encontrada")
}

func TestEditKeepsUntouchedFields(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")
	env.say(10, "/nova")
	env.say(10, "Relatório")
	env.say(10, "trimestral")
	env.say(10, "Alta")
	env.say(10, "20/06/2030")
	env.say(10, "Não")
	env.say(10, "10:00")
	env.say(10, "11:00")

	expectReply(t, env.say(10, "/editar 1"), "Editando")
	env.say(10, btnKeep)
	env.say(10, btnKeep)
	env.say(10, btnKeep)
	env.say(10, btnKeep)
	expectReply(t, env.say(10, "Sim"), "Tarefa atualizada")

	task := env.userTasks(t, 10)[0]
	if task.Title != "Relatório" || task.Description != "trimestral" || task.Urgency != model.UrgencyHigh {
		t.Fatalf("kept fields changed: %+v", task)
	}
	if !task.IsFullDay || task.StartTime != "" || !task.DueDate.Equal(time.Date(2030, 6, 20, fullDayHour, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected full-day task on the 20th: %+v", task)
	}
}

func TestCancelDialog(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")
	env.say(10, "/nova")
	env.say(10, "Algo")
	expectReply(t, env.say(10, btnCancelDialog), "Operação cancelada")
	expectReply(t, env.say(10, "texto solto"), "Não entendi")
	if len(env.userTasks(t, 10)) != 0 {
		t.Fatal("cancelled dialog must not create a task")
	}
}

func TestSinkAndDigests(t *testing.T) {
	env := newBotEnv(t)
	env.register(t, 10, "ana@example.com")
	ctx := context.Background()
	userID, err := env.sessions.UserIDByChat(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}

	sink := env.bot.Sink()
	if ok, err := sink.Reachable(ctx, userID); err != nil || !ok {
		t.Fatalf("expected linked user reachable: %v %v", ok, err)
	}
	if ok, _ := sink.Reachable(ctx, userID+1); ok {
		t.Fatal("unlinked user must not be reachable")
	}
	if err := sink.Deliver(ctx, notify.Notification{UserID: userID, Title: "Lembrete: Pagar <conta>", Body: "Vence em 1 hora"}); err != nil {
		t.Fatal(err)
	}
	expectReply(t, env.api.texts(), "Pagar &lt;conta&gt;")

	env.say(10, "/nova")
	env.say(10, "Pagar conta")
	env.say(10, "-")
	env.say(10, "Baixa")
	env.say(10, "hoje")
	env.say(10, "Sim")

	// Notifications are off by default.
	if err := env.bot.SendDigests(ctx); err != nil {
		t.Fatal(err)
	}
	if got := env.api.texts(); len(got) != 0 {
		t.Fatalf("digest sent with notifications off: %q", got)
	}

	env.say(10, "/notificacoes")
	if err := env.bot.SendDigests(ctx); err != nil {
		t.Fatal(err)
	}
	expectReply(t, env.api.texts(), "Bom dia, Ana!")
}
