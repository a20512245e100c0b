package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Urgency is the ordinal priority label of a task.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// ErrUnknownUrgency is returned by ParseUrgency for values outside the enum.
var ErrUnknownUrgency = errors.New("unknown urgency")

// Urgencies lists every level from most to least urgent.
var Urgencies = []Urgency{UrgencyUrgent, UrgencyHigh, UrgencyMedium, UrgencyLow}

// legacy spellings written by the first mobile release
var legacyUrgency = map[string]Urgency{
	"baixa":   UrgencyLow,
	"media":   UrgencyMedium,
	"média":   UrgencyMedium,
	"alta":    UrgencyHigh,
	"urgente": UrgencyUrgent,
}

// ParseUrgency normalizes raw input. Empty input means low.
func ParseUrgency(raw string) (Urgency, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return UrgencyLow, nil
	}
	if u := Urgency(value); u.Valid() {
		return u, nil
	}
	if u, ok := legacyUrgency[value]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUrgency, raw)
}

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// Rank orders urgencies: urgent(0) < high(1) < medium(2) < low(3).
// Anything unrecognized ranks as low.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyUrgent:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	default:
		return 3
	}
}

// Label is the pt-BR display name.
func (u Urgency) Label() string {
	switch u {
	case UrgencyUrgent:
		return "Urgente"
	case UrgencyHigh:
		return "Alta"
	case UrgencyMedium:
		return "Média"
	default:
		return "Baixa"
	}
}

// Task represents a single to-do item owned by one user.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Urgency     Urgency   `gorm:"size:16;default:low" json:"urgency"`
	DueDate     time.Time `gorm:"index;not null" json:"dueDate"`
	IsFullDay   bool      `json:"isFullDay"`
	StartTime   string    `gorm:"size:5" json:"startTime,omitempty"`
	EndTime     string    `gorm:"size:5" json:"endTime,omitempty"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the opaque id.
func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
