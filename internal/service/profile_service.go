package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/repository"
)

// ErrUserNotFound means the account behind a session is gone.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the user collection.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	UpdateName(ctx context.Context, id uint, name string) error
}

// Profile is the account screen.
type Profile struct {
	User  model.User `json:"user"`
	Stats Stats      `json:"stats"`
	// CompletionRate is a whole percentage.
	CompletionRate int `json:"completionRate"`
}

type ProfileService struct {
	users UserStore
	tasks TaskStore
}

func NewProfileService(users UserStore, tasks TaskStore) *ProfileService {
	return &ProfileService{users: users, tasks: tasks}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	total, completed, err := s.tasks.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := Stats{Total: int(total), Completed: int(completed), Pending: int(total - completed)}
	return &Profile{User: *user, Stats: stats, CompletionRate: stats.CompletionRate()}, nil
}

// UpdateName trims and stores a new display name.
func (s *ProfileService) UpdateName(ctx context.Context, userID uint, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "Name", Message: "O nome não pode ficar vazio"}
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, &ValidationError{Field: "Name", Message: "O nome é muito longo"}
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}
