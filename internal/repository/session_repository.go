package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// SessionRepository keeps Telegram chat sessions and password reset tokens.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Link signs a chat in as userID, replacing any previous account on that chat.
func (r *SessionRepository) Link(ctx context.Context, chatID int64, userID uint, username string) error {
	link := model.TelegramLink{ChatID: chatID, UserID: userID, Username: username}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "username"}),
	}).Create(&link).Error
	if err != nil {
		return fmt.Errorf("link chat: %w", err)
	}
	return nil
}

func (r *SessionRepository) Unlink(ctx context.Context, chatID int64) error {
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&model.TelegramLink{}).Error; err != nil {
		return fmt.Errorf("unlink chat: %w", err)
	}
	return nil
}

func (r *SessionRepository) UserIDByChat(ctx context.Context, chatID int64) (uint, error) {
	var link model.TelegramLink
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&link).Error; err != nil {
		return 0, translate(err)
	}
	return link.UserID, nil
}

func (r *SessionRepository) ChatIDsByUser(ctx context.Context, userID uint) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.TelegramLink{}).
		Where("user_id = ?", userID).
		Pluck("chat_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return ids, nil
}

// ListLinks returns every signed-in chat.
func (r *SessionRepository) ListLinks(ctx context.Context) ([]model.TelegramLink, error) {
	var links []model.TelegramLink
	if err := r.db.WithContext(ctx).Order("user_id, chat_id").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list chat links: %w", err)
	}
	return links, nil
}

func (r *SessionRepository) CreateReset(ctx context.Context, reset *model.PasswordReset) error {
	if err := r.db.WithContext(ctx).Create(reset).Error; err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindReset(ctx context.Context, tokenHash string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
		return nil, translate(err)
	}
	return &reset, nil
}

func (r *SessionRepository) MarkResetUsed(ctx context.Context, reset *model.PasswordReset) error {
	if err := r.db.WithContext(ctx).Model(reset).Update("used_at", reset.UsedAt).Error; err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	return nil
}

// PurgeResets drops reset tokens that expired before cutoff or were already used.
func (r *SessionRepository) PurgeResets(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", cutoff).
		Delete(&model.PasswordReset{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge password resets: %w", res.Error)
	}
	return res.RowsAffected, nil
}
