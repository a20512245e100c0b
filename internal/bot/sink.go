package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Motaplivia/tudinhoo/internal/notify"
)

// Sink delivers reminders to every chat linked to the user.
type Sink struct {
	bot *Bot
}

// Sink exposes the bot as a notification channel.
func (b *Bot) Sink() *Sink {
	return &Sink{bot: b}
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Reachable(ctx context.Context, userID uint) (bool, error) {
	chats, err := s.bot.sessions.ChatIDsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(chats) > 0, nil
}

func (s *Sink) Deliver(ctx context.Context, n notify.Notification) error {
	chats, err := s.bot.sessions.ChatIDsByUser(ctx, n.UserID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(n.Title), escape(n.Body))
	var errs []error
	for _, chatID := range chats {
		if err := s.bot.sendText(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// SendDigests sends the morning summary to every linked chat whose user has notifications on.
func (b *Bot) SendDigests(ctx context.Context) error {
	links, err := b.sessions.ListLinks(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	sent := 0
	for _, link := range links {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		prefs, err := b.preferences.Get(ctx, link.UserID)
		if err != nil {
			b.log.Warnw("load preferences for digest", "user_id", link.UserID, "error", err)
			continue
		}
		if !prefs.NotificationsEnabled {
			continue
		}
		user, err := b.auth.User(ctx, link.UserID)
		if err != nil {
			b.log.Warnw("load user for digest", "user_id", link.UserID, "error", err)
			continue
		}
		text, ok, err := b.digest.Digest(ctx, *user, now)
		if err != nil {
			b.log.Warnw("build digest", "user_id", link.UserID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := b.sendText(link.ChatID, text); err != nil {
			b.log.Warnw("send digest", "chat_id", link.ChatID, "error", err)
			continue
		}
		sent++
	}
	b.log.Infow("digests sent", "count", sent)
	return nil
}
