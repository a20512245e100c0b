package bot

import (
	"context"
	"errors"

	"github.com/Motaplivia/tudinhoo/internal/service"
)

func (b *Bot) sendProfile(ctx context.Context, chatID int64, userID uint) error {
	profile, err := b.profiles.Get(ctx, userID)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	prefs, err := b.preferences.Get(ctx, userID)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	return b.sendText(chatID, formatProfile(profile, prefs))
}

func (b *Bot) handleRename(ctx context.Context, chatID int64, userID uint, name string) error {
	if name == "" {
		return b.sendText(chatID, "Use <code>/nome Seu Nome</code> para trocar o nome.")
	}
	profile, err := b.profiles.UpdateName(ctx, userID, name)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	return b.sendText(chatID, "✏️ Nome atualizado para <b>"+escape(profile.User.Name)+"</b>.")
}

func (b *Bot) handleToggleTheme(ctx context.Context, chatID int64, userID uint) error {
	prefs, err := b.preferences.ToggleDarkMode(ctx, userID)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	return b.sendText(chatID, "🌙 Modo escuro "+onOff(prefs.DarkModeEnabled)+".")
}

func (b *Bot) handleToggleNotifications(ctx context.Context, chatID int64, userID uint) error {
	prefs, err := b.preferences.ToggleNotifications(ctx, userID)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	if prefs.NotificationsEnabled {
		return b.sendText(chatID, "🔔 Notificações ativadas. Você será lembrado 1 hora antes de cada tarefa.")
	}
	return b.sendText(chatID, "🔕 Notificações desativadas. Lembretes pendentes foram cancelados.")
}

func (b *Bot) handleDigest(ctx context.Context, chatID int64, userID uint) error {
	user, err := b.auth.User(ctx, userID)
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	text, ok, err := b.digest.Digest(ctx, *user, b.now())
	if err != nil {
		return b.reportAccountError(chatID, err)
	}
	if !ok {
		return b.sendText(chatID, "🎉 Nenhuma tarefa pendente. Aproveite o dia!")
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleLogout(ctx context.Context, chatID int64, userID uint) error {
	if err := b.sessions.Unlink(ctx, chatID); err != nil {
		return err
	}
	b.forgetChat(chatID)
	b.log.Infow("chat signed out", "chat_id", chatID, "user_id", userID)
	return b.sendTextWithRemove(chatID, "👋 Você saiu. Use /entrar para voltar.")
}

func (b *Bot) reportAccountError(chatID int64, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return b.sendText(chatID, escape(verr.Message))
	}
	if errors.Is(err, service.ErrUserNotFound) {
		return b.sendText(chatID, "Conta não encontrada. Entre novamente com /entrar.")
	}
	b.log.Errorw("account operation failed", "chat_id", chatID, "error", err)
	return b.sendText(chatID, "Ocorreu um erro inesperado. Tente novamente.")
}
