package model

import "time"

// User is an authenticated identity together with its profile.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TelegramLink binds a Telegram chat to a signed-in account.
type TelegramLink struct {
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint  `gorm:"index;not null"`
	Username  string
	CreatedAt time.Time
}

// PasswordReset is a one-time token sent by mail.
type PasswordReset struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	TokenHash string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
