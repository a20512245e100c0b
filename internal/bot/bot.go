package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/repository"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// SessionStore binds chats to accounts.
type SessionStore interface {
	Link(ctx context.Context, chatID int64, userID uint, username string) error
	Unlink(ctx context.Context, chatID int64) error
	UserIDByChat(ctx context.Context, chatID int64) (uint, error)
	ChatIDsByUser(ctx context.Context, userID uint) ([]int64, error)
	ListLinks(ctx context.Context) ([]model.TelegramLink, error)
}

// Deps are the collaborators of the bot.
type Deps struct {
	Auth        *auth.Service
	Tasks       *service.TaskService
	Profiles    *service.ProfileService
	Preferences *service.PreferenceService
	Digest      *service.DigestService
	Sessions    SessionStore
	Location    *time.Location
	Log         *zap.SugaredLogger
}

type confirmationRequest struct {
	taskID string
	title  string
}

// Bot is the Telegram front end of the to-do list.
type Bot struct {
	api         API
	auth        *auth.Service
	tasks       *service.TaskService
	profiles    *service.ProfileService
	preferences *service.PreferenceService
	digest      *service.DigestService
	sessions    SessionStore
	loc         *time.Location
	log         *zap.SugaredLogger

	mu            sync.Mutex
	conversations map[int64]*conversation
	confirmations map[int64]confirmationRequest
	// listings keeps the task ids of the last list sent to a chat so /done 2 works.
	listings map[int64][]string
}

// NewAPI connects to Telegram with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return api, nil
}

func New(api API, d Deps) *Bot {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:           api,
		auth:          d.Auth,
		tasks:         d.Tasks,
		profiles:      d.Profiles,
		preferences:   d.Preferences,
		digest:        d.Digest,
		sessions:      d.Sessions,
		loc:           loc,
		log:           d.Log.With("component", "bot"),
		conversations: make(map[int64]*conversation),
		confirmations: make(map[int64]confirmationRequest),
		listings:      make(map[int64][]string),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
	return nil
}

// HandleUpdate processes one update. Errors are logged.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Warnw("handle callback", "error", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Warnw("handle message", "chat_id", update.Message.Chat.ID, "error", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Operação cancelada.")
	}

	if msg.IsCommand() {
		b.log.Debugw("command", "chat_id", chatID, "command", msg.Command())
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.handleCommand(ctx, msg)
	}

	if !b.hasConversation(chatID) {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			b.clearConfirmation(chatID)
			return err
		}
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(chatID, "Não entendi a mensagem. Use /nova para criar uma tarefa ou /ajuda para ver os comandos.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help", "ajuda":
		return b.handleHelp(chatID)
	case "register", "cadastro":
		return b.startRegister(chatID)
	case "login", "entrar":
		return b.startLogin(chatID)
	case "forgot", "esqueci":
		return b.startForgot(chatID)
	case "cancel", "cancelar":
		return b.sendText(chatID, "⏪ Operação cancelada.")
	}

	userID, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return err
	}

	switch msg.Command() {
	case "home", "inicio":
		return b.sendHome(ctx, chatID, userID)
	case "tasks", "tarefas":
		return b.sendTaskList(ctx, chatID, userID)
	case "newtask", "nova":
		return b.startNewTask(chatID)
	case "edit", "editar":
		return b.handleEdit(ctx, chatID, userID, args)
	case "done", "concluir":
		return b.handleSetCompleted(ctx, chatID, userID, args, true)
	case "undo", "reabrir":
		return b.handleSetCompleted(ctx, chatID, userID, args, false)
	case "delete", "excluir":
		return b.handleDelete(ctx, chatID, userID, args)
	case "profile", "perfil":
		return b.sendProfile(ctx, chatID, userID)
	case "name", "nome":
		return b.handleRename(ctx, chatID, userID, args)
	case "theme", "tema":
		return b.handleToggleTheme(ctx, chatID, userID)
	case "notifications", "notificacoes":
		return b.handleToggleNotifications(ctx, chatID, userID)
	case "digest", "resumo":
		return b.handleDigest(ctx, chatID, userID)
	case "logout", "sair":
		return b.handleLogout(ctx, chatID, userID)
	default:
		return b.sendText(chatID, "Comando não suportado. Veja /ajuda.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	label, ok := menuAlias(msg.Text)
	if !ok {
		return false, nil
	}
	chatID := msg.Chat.ID
	if label == menuLabelHelp {
		return true, b.handleHelp(chatID)
	}
	userID, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return true, err
	}
	switch label {
	case menuLabelNewTask:
		return true, b.startNewTask(chatID)
	case menuLabelTasks:
		return true, b.sendTaskList(ctx, chatID, userID)
	case menuLabelHome:
		return true, b.sendHome(ctx, chatID, userID)
	case menuLabelProfile:
		return true, b.sendProfile(ctx, chatID, userID)
	}
	return false, nil
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	userID, err := b.sessions.UserIDByChat(ctx, chatID)
	if err == nil {
		if user, err := b.auth.User(ctx, userID); err == nil {
			return b.sendText(chatID, fmt.Sprintf("👋 Olá de novo, %s!\nUse /inicio para ver o resumo do dia.", escape(user.Name)))
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "tudo bem"
	}
	text := fmt.Sprintf(
		"👋 Olá, %s!\n<b>Eu sou o Tudinho, sua lista de tarefas.</b>\n\n"+
			"• /cadastro para criar uma conta\n"+
			"• /entrar se você já tem uma conta\n"+
			"• /esqueci para redefinir a senha\n"+
			"• /ajuda para ver todos os comandos",
		escape(name),
	)
	return b.sendText(chatID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "ℹ️ <b>Comandos</b>\n" +
		"• /inicio: resumo do dia\n" +
		"• /tarefas: lista numerada das tarefas\n" +
		"• /nova: criar tarefa passo a passo\n" +
		"• /editar &lt;n&gt;: editar a tarefa n da última lista\n" +
		"• /concluir &lt;n&gt; e /reabrir &lt;n&gt;: marcar ou desmarcar\n" +
		"• /excluir &lt;n&gt;: excluir a tarefa\n" +
		"• /perfil, /nome &lt;novo nome&gt;\n" +
		"• /tema, /notificacoes: alternar preferências\n" +
		"• /resumo: receber o resumo agora\n" +
		"• /sair: desconectar este chat\n" +
		"• /cancelar: interromper a operação atual"
	return b.sendText(chatID, text)
}

// requireUser resolves the account linked to the chat. ok is false when the user was told to sign in.
func (b *Bot) requireUser(ctx context.Context, chatID int64) (uint, bool, error) {
	userID, err := b.sessions.UserIDByChat(ctx, chatID)
	if err == nil {
		return userID, true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, b.sendText(chatID, "🔒 Você precisa entrar primeiro: /entrar ou /cadastro.")
	}
	return 0, false, err
}

func (b *Bot) now() time.Time {
	return b.tasks.Now().In(b.loc)
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewRemoveKeyboard(true))
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// deleteMessage removes a message carrying a password. Failures only get logged.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debugw("delete message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) setListing(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings[chatID] = ids
}

func (b *Bot) listing(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings[chatID]
}

func (b *Bot) forgetChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
	delete(b.confirmations, chatID)
	delete(b.listings, chatID)
}
