package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Motaplivia/tudinhoo/internal/service"
)

var errNoTaskRef = errors.New("no task reference")

// resolveTask maps "3" to the third task of the chat's last listing. A task id is accepted as is.
func (b *Bot) resolveTask(chatID int64, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errNoTaskRef
	}
	if n, err := strconv.Atoi(arg); err == nil {
		ids := b.listing(chatID)
		if n < 1 || n > len(ids) {
			return "", service.ErrTaskNotFound
		}
		return ids[n-1], nil
	}
	if _, err := uuid.Parse(arg); err != nil {
		return "", errNoTaskRef
	}
	return arg, nil
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, userID uint) error {
	tasks, err := b.tasks.ListTasks(ctx, userID)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	if len(tasks) == 0 {
		b.setListing(chatID, nil)
		return b.sendText(chatID, "Você ainda não tem tarefas. Crie uma com /nova.")
	}

	now := b.now()
	ids := make([]string, 0, len(tasks))
	buttons := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))

	var builder strings.Builder
	builder.WriteString("📋 <b>Suas tarefas</b>\n")
	builder.WriteString("Toque nos botões para concluir ou excluir.\n\n")
	for i, task := range tasks {
		builder.WriteString(formatNumberedTask(task, i+1, now))
		builder.WriteByte('\n')
		ids = append(ids, task.ID)
		buttons = append(buttons, taskButtons(task, i+1))
	}
	b.setListing(chatID, ids)

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendHome(ctx context.Context, chatID int64, userID uint) error {
	user, err := b.auth.User(ctx, userID)
	if err != nil {
		return err
	}
	dash, err := b.tasks.Dashboard(ctx, userID)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	return b.sendText(chatID, formatHome(user.Name, dash, b.now()))
}

func (b *Bot) handleSetCompleted(ctx context.Context, chatID int64, userID uint, arg string, completed bool) error {
	taskID, err := b.resolveTask(chatID, arg)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	return b.setCompletedAndRefresh(ctx, chatID, userID, taskID, completed)
}

func (b *Bot) setCompletedAndRefresh(ctx context.Context, chatID int64, userID uint, taskID string, completed bool) error {
	task, err := b.tasks.SetCompleted(ctx, userID, taskID, completed)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	b.log.Infow("task completion changed", "user_id", userID, "task_id", task.ID, "completed", task.Completed)

	info := fmt.Sprintf("✅ Tarefa «%s» concluída.", escape(normalizeTitle(task.Title)))
	if !task.Completed {
		info = fmt.Sprintf("↩️ Tarefa «%s» reaberta.", escape(normalizeTitle(task.Title)))
	}
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, userID)
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, userID uint, arg string) error {
	taskID, err := b.resolveTask(chatID, arg)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	task, err := b.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	return b.startEditTask(chatID, *task)
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, userID uint, arg string) error {
	taskID, err := b.resolveTask(chatID, arg)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	return b.askDeleteConfirmation(ctx, chatID, userID, taskID)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, userID uint, taskID string) error {
	task, err := b.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return b.reportTaskError(chatID, err)
	}
	b.setConfirmation(chatID, confirmationRequest{taskID: task.ID, title: task.Title})
	text := fmt.Sprintf("Excluir a tarefa «%s»? Essa ação não pode ser desfeita.", escape(normalizeTitle(task.Title)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(chatID)
		userID, ok, err := b.requireUser(ctx, chatID)
		if !ok {
			return err
		}
		return b.deleteTaskAndRefresh(ctx, chatID, userID, req)
	case isCancelInput(msg.Text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Ok, nada foi excluído.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirme ou cancele a exclusão da tarefa.", confirmKeyboard())
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, userID uint, req confirmationRequest) error {
	if err := b.tasks.DeleteTask(ctx, userID, req.taskID); err != nil {
		return b.reportTaskError(chatID, err)
	}
	b.log.Infow("task deleted from chat", "user_id", userID, "task_id", req.taskID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Tarefa «%s» excluída.", escape(normalizeTitle(req.title)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, userID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debugw("callback ack", "error", err)
	}

	chatID := cb.Message.Chat.ID
	userID, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return err
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		return b.setCompletedAndRefresh(ctx, chatID, userID, strings.TrimPrefix(data, cbCompletePrefix), true)
	case strings.HasPrefix(data, cbReopenPrefix):
		return b.setCompletedAndRefresh(ctx, chatID, userID, strings.TrimPrefix(data, cbReopenPrefix), false)
	case strings.HasPrefix(data, cbDeletePrefix):
		b.clearConversation(chatID)
		return b.askDeleteConfirmation(ctx, chatID, userID, strings.TrimPrefix(data, cbDeletePrefix))
	}
	return nil
}

func (b *Bot) reportTaskError(chatID int64, err error) error {
	switch {
	case errors.Is(err, errNoTaskRef):
		return b.sendText(chatID, "Informe o número da tarefa, por exemplo <code>/concluir 2</code>. Veja a lista em /tarefas.")
	case errors.Is(err, service.ErrTaskNotFound):
		return b.sendText(chatID, "Tarefa não encontrada. Veja a lista atualizada em /tarefas.")
	}
	b.log.Errorw("task operation failed", "chat_id", chatID, "error", err)
	return b.sendText(chatID, "Ocorreu um erro inesperado. Tente novamente.")
}
