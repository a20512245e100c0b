package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// PreferenceStore persists per-user switches.
type PreferenceStore interface {
	PreferenceReader
	Save(ctx context.Context, prefs *model.Preferences) error
}

// PreferenceService toggles dark mode and notifications. Turning notifications off
// cancels the user's pending reminders; turning them on arms reminders for open tasks.
type PreferenceService struct {
	prefs     PreferenceStore
	tasks     TaskStore
	reminders *ReminderScheduler
	log       *zap.SugaredLogger
}

func NewPreferenceService(prefs PreferenceStore, tasks TaskStore, reminders *ReminderScheduler, log *zap.SugaredLogger) *PreferenceService {
	return &PreferenceService{prefs: prefs, tasks: tasks, reminders: reminders, log: log.With("component", "preferences")}
}

func (s *PreferenceService) Get(ctx context.Context, userID uint) (model.Preferences, error) {
	return s.prefs.Get(ctx, userID)
}

func (s *PreferenceService) ToggleDarkMode(ctx context.Context, userID uint) (model.Preferences, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return prefs, err
	}
	return s.Set(ctx, userID, !prefs.DarkModeEnabled, prefs.NotificationsEnabled)
}

func (s *PreferenceService) ToggleNotifications(ctx context.Context, userID uint) (model.Preferences, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return prefs, err
	}
	return s.Set(ctx, userID, prefs.DarkModeEnabled, !prefs.NotificationsEnabled)
}

// Set writes both switches. The store is the source of truth; reminders follow it.
func (s *PreferenceService) Set(ctx context.Context, userID uint, darkMode, notifications bool) (model.Preferences, error) {
	before, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return before, err
	}

	prefs := model.Preferences{UserID: userID, DarkModeEnabled: darkMode, NotificationsEnabled: notifications}
	if err := s.prefs.Save(ctx, &prefs); err != nil {
		return before, err
	}

	switch {
	case before.NotificationsEnabled && !notifications:
		s.reminders.CancelUser(ctx, userID)
	case !before.NotificationsEnabled && notifications:
		s.arm(ctx, userID)
	}
	return prefs, nil
}

func (s *PreferenceService) arm(ctx context.Context, userID uint) {
	tasks, err := s.tasks.ListOpenDueAfter(ctx, userID, s.reminders.now().Add(ReminderOffset))
	if err != nil {
		s.log.Warnw("list tasks to arm reminders", "user_id", userID, "error", err)
		return
	}
	armed := s.reminders.Arm(ctx, tasks)
	s.log.Debugw("reminders armed", "user_id", userID, "count", armed)
}
