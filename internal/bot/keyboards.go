package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

const (
	cbCompletePrefix = "complete:"
	cbReopenPrefix   = "reopen:"
	cbDeletePrefix   = "delete:"
)

const (
	btnSkip          = "⏭️ Pular"
	btnKeep          = "⏭️ Manter"
	btnYes           = "Sim"
	btnNo            = "Não"
	btnConfirm       = "✅ Confirmar"
	btnCancel        = "↩️ Voltar"
	btnCancelDialog  = "⏪ Cancelar"
	btnToday         = "Hoje"
	btnTomorrow      = "Amanhã"
	menuLabelNewTask = "➕ Nova tarefa"
	menuLabelTasks   = "📋 Tarefas"
	menuLabelHome    = "🏠 Início"
	menuLabelProfile = "👤 Perfil"
	menuLabelHelp    = "ℹ️ Ajuda"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHome),
			tgbotapi.NewKeyboardButton(menuLabelProfile),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// skipKeyboard offers "Pular" while creating and "Manter" while editing.
func skipKeyboard(editing bool) tgbotapi.ReplyKeyboardMarkup {
	label := btnSkip
	if editing {
		label = btnKeep
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func urgencyKeyboard(editing bool) tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(model.Urgencies))
	for i := len(model.Urgencies) - 1; i >= 0; i-- {
		row = append(row, tgbotapi.NewKeyboardButton(model.Urgencies[i].Label()))
	}
	last := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancelDialog)}
	if editing {
		last = append([]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnKeep)}, last...)
	}
	kb := tgbotapi.NewReplyKeyboard(row, last)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func dateKeyboard(editing bool) tgbotapi.ReplyKeyboardMarkup {
	last := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancelDialog)}
	if editing {
		last = append([]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnKeep)}, last...)
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
		),
		last,
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func taskButtons(task model.Task, n int) []tgbotapi.InlineKeyboardButton {
	toggle := tgbotapi.NewInlineKeyboardButtonData("✅ "+strconv.Itoa(n)+" · "+shortTitle(task.Title, 20), cbCompletePrefix+task.ID)
	if task.Completed {
		toggle = tgbotapi.NewInlineKeyboardButtonData("↩️ "+strconv.Itoa(n)+" · Reabrir", cbReopenPrefix+task.ID)
	}
	return []tgbotapi.InlineKeyboardButton{
		toggle,
		tgbotapi.NewInlineKeyboardButtonData("🗑 Excluir", cbDeletePrefix+task.ID),
	}
}

func normalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func menuAlias(text string) (string, bool) {
	value := normalizeInput(text)
	for _, label := range []string{menuLabelNewTask, menuLabelTasks, menuLabelHome, menuLabelProfile, menuLabelHelp} {
		if value == strings.ToLower(label) {
			return label, true
		}
	}
	return "", false
}

func isSkipInput(text string) bool {
	switch normalizeInput(text) {
	case strings.ToLower(btnSkip), strings.ToLower(btnKeep), "pular", "manter", "-":
		return true
	}
	return false
}

func isCancelDialogInput(text string) bool {
	switch normalizeInput(text) {
	case strings.ToLower(btnCancelDialog), "cancelar":
		return true
	}
	return false
}

func isConfirmInput(text string) bool {
	switch normalizeInput(text) {
	case strings.ToLower(btnConfirm), "confirmar", "sim", "s":
		return true
	}
	return false
}

func isCancelInput(text string) bool {
	switch normalizeInput(text) {
	case strings.ToLower(btnCancel), "voltar", "não", "nao", "n":
		return true
	}
	return false
}

// parseYesNo reads Sim/Não answers. ok is false for anything else.
func parseYesNo(text string) (yes, ok bool) {
	switch normalizeInput(text) {
	case "sim", "s", "yes", "y":
		return true, true
	case "não", "nao", "n", "no":
		return false, true
	}
	return false, false
}
