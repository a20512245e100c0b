package model

import "time"

// Preferences are per-account UI and reminder switches. Both default to false.
type Preferences struct {
	UserID               uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	DarkModeEnabled      bool      `json:"darkModeEnabled"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// PushSubscription is a browser/mobile web-push endpoint.
type PushSubscription struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Endpoint  string `gorm:"uniqueIndex;not null"`
	P256dh    string `gorm:"not null"`
	Auth      string `gorm:"not null"`
	CreatedAt time.Time
}
