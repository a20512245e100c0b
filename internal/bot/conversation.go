package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

type flow int

const (
	flowRegister flow = iota
	flowLogin
	flowForgot
	flowNewTask
	flowEditTask
)

type step int

const (
	stepName step = iota
	stepEmail
	stepPassword
	stepConfirm
	stepResetCode
	stepNewPassword
	stepTitle
	stepDescription
	stepUrgency
	stepDate
	stepFullDay
	stepStart
	stepEnd
)

type conversation struct {
	flow     flow
	step     step
	name     string
	email    string
	password string
	code     string
	taskID   string
	input    service.TaskInput
	day      time.Time
}

func (c *conversation) editing() bool {
	return c.flow == flowEditTask
}

func (b *Bot) startRegister(chatID int64) error {
	b.setConversation(chatID, &conversation{flow: flowRegister, step: stepName})
	return b.sendWithReplyMarkup(chatID, "📝 Vamos criar sua conta.\n<b>Como você quer ser chamado?</b>", cancelKeyboard())
}

func (b *Bot) startLogin(chatID int64) error {
	b.setConversation(chatID, &conversation{flow: flowLogin, step: stepEmail})
	return b.sendWithReplyMarkup(chatID, "🔑 Qual é o seu email?", cancelKeyboard())
}

func (b *Bot) startForgot(chatID int64) error {
	b.setConversation(chatID, &conversation{flow: flowForgot, step: stepEmail})
	return b.sendWithReplyMarkup(chatID, "🔁 Informe o email da conta para receber o código de redefinição.", cancelKeyboard())
}

func (b *Bot) startNewTask(chatID int64) error {
	b.setConversation(chatID, &conversation{flow: flowNewTask, step: stepTitle})
	return b.sendWithReplyMarkup(chatID, "🆕 Nova tarefa.\n<b>Passo 1:</b> qual é o título?", cancelKeyboard())
}

func (b *Bot) startEditTask(chatID int64, task model.Task) error {
	state := &conversation{
		flow:   flowEditTask,
		step:   stepTitle,
		taskID: task.ID,
		day:    service.DateOnly(task.DueDate, b.loc),
		input: service.TaskInput{
			Title:       task.Title,
			Description: task.Description,
			Urgency:     string(task.Urgency),
			IsFullDay:   task.IsFullDay,
			StartTime:   task.StartTime,
			EndTime:     task.EndTime,
			Completed:   task.Completed,
		},
	}
	b.setConversation(chatID, state)
	text := fmt.Sprintf("✏️ Editando «%s».\nEnvie o novo título ou toque em «Manter».", escape(normalizeTitle(task.Title)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard(true))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}
	switch state.flow {
	case flowRegister:
		return b.continueRegister(ctx, msg, state)
	case flowLogin:
		return b.continueLogin(ctx, msg, state)
	case flowForgot:
		return b.continueForgot(ctx, msg, state)
	default:
		return b.continueTask(ctx, msg, state)
	}
}

func (b *Bot) continueRegister(ctx context.Context, msg *tgbotapi.Message, state *conversation) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.step {
	case stepName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "O nome não pode ficar vazio.", cancelKeyboard())
		}
		state.name = text
		state.step = stepEmail
		return b.sendWithReplyMarkup(chatID, "✉️ Qual é o seu email?", cancelKeyboard())
	case stepEmail:
		state.email = text
		state.step = stepPassword
		return b.sendWithReplyMarkup(chatID, "🔒 Escolha uma senha com pelo menos 6 caracteres.", cancelKeyboard())
	case stepPassword:
		b.deleteMessage(chatID, msg.MessageID)
		state.password = msg.Text
		state.step = stepConfirm
		return b.sendWithReplyMarkup(chatID, "🔒 Repita a senha.", cancelKeyboard())
	case stepConfirm:
		b.deleteMessage(chatID, msg.MessageID)
		session, err := b.auth.SignUp(ctx, state.name, state.email, state.password, msg.Text)
		if err != nil {
			switch auth.CodeOf(err) {
			case auth.CodeEmailInUse, auth.CodeInvalidEmail:
				state.step = stepEmail
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nInforme outro email.", cancelKeyboard())
			case auth.CodeWeakPassword, auth.CodePasswordMismatch:
				state.step = stepPassword
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nDigite a senha novamente.", cancelKeyboard())
			}
			b.clearConversation(chatID)
			return b.sendText(chatID, escape(auth.Message(err)))
		}
		return b.completeSignIn(ctx, msg, session, "🎉 Conta criada!")
	}
	b.clearConversation(chatID)
	return nil
}

func (b *Bot) continueLogin(ctx context.Context, msg *tgbotapi.Message, state *conversation) error {
	chatID := msg.Chat.ID

	switch state.step {
	case stepEmail:
		state.email = strings.TrimSpace(msg.Text)
		state.step = stepPassword
		return b.sendWithReplyMarkup(chatID, "🔒 Agora a senha.", cancelKeyboard())
	case stepPassword:
		b.deleteMessage(chatID, msg.MessageID)
		session, err := b.auth.SignIn(ctx, state.email, msg.Text)
		if err != nil {
			switch auth.CodeOf(err) {
			case auth.CodeWrongPassword:
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nTente a senha de novo ou use /esqueci.", cancelKeyboard())
			case auth.CodeUserNotFound, auth.CodeInvalidEmail, auth.CodeMissingFields:
				state.step = stepEmail
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nQual é o seu email?", cancelKeyboard())
			}
			b.clearConversation(chatID)
			return b.sendText(chatID, escape(auth.Message(err)))
		}
		return b.completeSignIn(ctx, msg, session, "✅ Você entrou!")
	}
	b.clearConversation(chatID)
	return nil
}

func (b *Bot) completeSignIn(ctx context.Context, msg *tgbotapi.Message, session *auth.Session, greeting string) error {
	chatID := msg.Chat.ID
	b.clearConversation(chatID)
	if err := b.sessions.Link(ctx, chatID, session.User.ID, msg.From.UserName); err != nil {
		return err
	}
	b.log.Infow("chat signed in", "chat_id", chatID, "user_id", session.User.ID)
	if err := b.sendText(chatID, fmt.Sprintf("%s Olá, %s.", greeting, escape(session.User.Name))); err != nil {
		return err
	}
	return b.sendHome(ctx, chatID, session.User.ID)
}

func (b *Bot) continueForgot(ctx context.Context, msg *tgbotapi.Message, state *conversation) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.step {
	case stepEmail:
		if err := b.auth.SendPasswordReset(ctx, text); err != nil {
			if auth.CodeOf(err) == "" {
				b.clearConversation(chatID)
				b.log.Warnw("send password reset", "chat_id", chatID, "error", err)
				return b.sendText(chatID, escape(auth.Message(err)))
			}
			return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nInforme o email novamente.", cancelKeyboard())
		}
		state.email = text
		state.step = stepResetCode
		return b.sendWithReplyMarkup(chatID, "📬 Enviamos um código para o seu email. Cole o código aqui.", cancelKeyboard())
	case stepResetCode:
		state.code = text
		state.step = stepNewPassword
		return b.sendWithReplyMarkup(chatID, "🔒 Digite a nova senha.", cancelKeyboard())
	case stepNewPassword:
		b.deleteMessage(chatID, msg.MessageID)
		if err := b.auth.ResetPassword(ctx, state.code, msg.Text); err != nil {
			switch auth.CodeOf(err) {
			case auth.CodeInvalidResetToken:
				state.step = stepResetCode
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err))+"\nCole o código novamente.", cancelKeyboard())
			case auth.CodeWeakPassword:
				return b.sendWithReplyMarkup(chatID, escape(auth.Message(err)), cancelKeyboard())
			}
			b.clearConversation(chatID)
			return b.sendText(chatID, escape(auth.Message(err)))
		}
		b.clearConversation(chatID)
		return b.sendText(chatID, "✅ Senha alterada. Use /entrar para acessar sua conta.")
	}
	b.clearConversation(chatID)
	return nil
}

func (b *Bot) continueTask(ctx context.Context, msg *tgbotapi.Message, state *conversation) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	editing := state.editing()
	keep := editing && isSkipInput(text)

	switch state.step {
	case stepTitle:
		if !keep {
			if text == "" {
				return b.sendWithReplyMarkup(chatID, "O título da tarefa é obrigatório.", cancelKeyboard())
			}
			state.input.Title = text
		}
		state.step = stepDescription
		prompt := "📝 Adicione uma descrição (ou toque em «Pular»)."
		if editing {
			prompt = "📝 Envie a nova descrição ou toque em «Manter»."
		}
		return b.sendWithReplyMarkup(chatID, prompt, skipKeyboard(editing))
	case stepDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.step = stepUrgency
		return b.sendWithReplyMarkup(chatID, "🔥 Qual é a urgência?", urgencyKeyboard(editing))
	case stepUrgency:
		if !keep {
			urgency, err := model.ParseUrgency(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Urgência inválida. Escolha uma das opções.", urgencyKeyboard(editing))
			}
			state.input.Urgency = string(urgency)
		}
		state.step = stepDate
		return b.sendWithReplyMarkup(chatID, "📅 Para quando? Use <code>hoje</code>, <code>amanhã</code> ou <code>dd/mm/aaaa</code>.", dateKeyboard(editing))
	case stepDate:
		if !keep {
			day, err := parseDay(text, b.now())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Não reconheci a data. Exemplo: <code>25/12/2025</code>.", dateKeyboard(editing))
			}
			state.day = day
		}
		state.step = stepFullDay
		markup := yesNoKeyboard()
		if editing {
			markup = skipKeyboard(true)
			markup.Keyboard = append([][]tgbotapi.KeyboardButton{{tgbotapi.NewKeyboardButton(btnYes), tgbotapi.NewKeyboardButton(btnNo)}}, markup.Keyboard...)
		}
		return b.sendWithReplyMarkup(chatID, "🕘 É uma tarefa de dia inteiro?", markup)
	case stepFullDay:
		if !keep {
			yes, ok := parseYesNo(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Responda «Sim» ou «Não».", yesNoKeyboard())
			}
			state.input.IsFullDay = yes
		}
		if state.input.IsFullDay {
			state.input.StartTime, state.input.EndTime = "", ""
			return b.finishTask(ctx, chatID, state)
		}
		state.step = stepStart
		return b.sendWithReplyMarkup(chatID, "⏰ Horário de início? Exemplo: <code>14:00</code>.", b.clockKeyboard(state))
	case stepStart:
		if !(keep && state.input.StartTime != "") {
			clock, ok := parseClock(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Horário inválido. Use HH:MM, por exemplo <code>09:30</code>.", b.clockKeyboard(state))
			}
			state.input.StartTime = clock
		}
		state.step = stepEnd
		return b.sendWithReplyMarkup(chatID, "⏰ Horário de término?", b.clockKeyboard(state))
	case stepEnd:
		if !(keep && state.input.EndTime != "") {
			clock, ok := parseClock(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Horário inválido. Use HH:MM, por exemplo <code>10:30</code>.", b.clockKeyboard(state))
			}
			state.input.EndTime = clock
		}
		return b.finishTask(ctx, chatID, state)
	}
	b.clearConversation(chatID)
	return b.sendText(chatID, "Conversa reiniciada. Tente de novo com /nova.")
}

// clockKeyboard lets an edit keep the current time only when there is one.
func (b *Bot) clockKeyboard(state *conversation) tgbotapi.ReplyKeyboardMarkup {
	if state.editing() && state.input.StartTime != "" {
		return skipKeyboard(true)
	}
	return cancelKeyboard()
}

func (b *Bot) finishTask(ctx context.Context, chatID int64, state *conversation) error {
	b.clearConversation(chatID)
	userID, ok, err := b.requireUser(ctx, chatID)
	if !ok {
		return err
	}

	day := state.day
	if day.IsZero() {
		day = service.DateOnly(b.now(), b.loc)
	}
	due := dueAt(day, state.input.IsFullDay, state.input.StartTime)
	state.input.DueDate = &due

	var task *model.Task
	if state.editing() {
		task, err = b.tasks.UpdateTask(ctx, userID, state.taskID, state.input)
	} else {
		task, err = b.tasks.CreateTask(ctx, userID, state.input)
	}
	if err != nil {
		if service.IsValidation(err) {
			return b.sendText(chatID, escape(err.Error()))
		}
		return b.reportTaskError(chatID, err)
	}

	b.log.Infow("task saved from chat", "chat_id", chatID, "user_id", userID, "task_id", task.ID, "edited", state.editing())
	if err := b.sendText(chatID, formatTaskSaved(*task, b.now(), !state.editing())); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, userID)
}
