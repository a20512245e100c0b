package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// PreferenceRepository stores the dark mode and notification switches.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns stored preferences, or the all-false defaults when none were saved.
func (r *PreferenceRepository) Get(ctx context.Context, userID uint) (model.Preferences, error) {
	var prefs model.Preferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	switch {
	case err == nil:
		return prefs, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Preferences{UserID: userID}, nil
	default:
		return model.Preferences{}, fmt.Errorf("find preferences: %w", err)
	}
}

// Save writes through both switches. Concurrent writers: last one wins.
func (r *PreferenceRepository) Save(ctx context.Context, prefs *model.Preferences) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dark_mode_enabled", "notifications_enabled", "updated_at"}),
	}).Create(prefs).Error
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
