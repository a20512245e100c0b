package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/repository"
)

const (
	minPasswordLength = 6
	resetTTL          = time.Hour
)

// UserStore is the account collection.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// ResetStore keeps hashed one-time reset tokens.
type ResetStore interface {
	CreateReset(ctx context.Context, reset *model.PasswordReset) error
	FindReset(ctx context.Context, tokenHash string) (*model.PasswordReset, error)
	MarkResetUsed(ctx context.Context, reset *model.PasswordReset) error
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// StateChange is published on sign-in and sign-out.
type StateChange struct {
	UserID   uint
	SignedIn bool
}

// Service is the identity provider.
type Service struct {
	users   UserStore
	resets  ResetStore
	mailer  Mailer
	tokens  *Tokens
	limiter *attemptLimiter
	log     *zap.SugaredLogger
	now     func() time.Time

	mu        sync.Mutex
	listeners map[int]func(StateChange)
	nextID    int
	revoked   map[string]time.Time
}

func NewService(users UserStore, resets ResetStore, mailer Mailer, tokens *Tokens, log *zap.SugaredLogger) *Service {
	return &Service{
		users:     users,
		resets:    resets,
		mailer:    mailer,
		tokens:    tokens,
		limiter:   newAttemptLimiter(12*time.Second, 5),
		log:       log.With("component", "auth"),
		now:       tokens.now,
		listeners: make(map[int]func(StateChange)),
		revoked:   make(map[string]time.Time),
	}
}

// SignUp creates the account and the profile in one go and signs the user in.
func (s *Service) SignUp(ctx context.Context, name, email, password, confirm string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" || strings.TrimSpace(confirm) == "" {
		return nil, fail(OpSignUp, CodeMissingFields)
	}
	if password != confirm {
		return nil, fail(OpSignUp, CodePasswordMismatch)
	}
	if !validEmail(email) {
		return nil, fail(OpSignUp, CodeInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return nil, fail(OpSignUp, CodeWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fail(OpSignUp, CodeEmailInUse)
		}
		return nil, err
	}
	s.log.Infow("user registered", "user_id", user.ID)
	return s.startSession(user)
}

// SignIn checks the credentials. Attempts are throttled per email.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, fail(OpSignIn, CodeMissingFields)
	}
	if !validEmail(email) {
		return nil, fail(OpSignIn, CodeInvalidEmail)
	}
	if !s.limiter.allow(email, s.now()) {
		s.log.Warnw("sign-in throttled", "email", email)
		return nil, fail(OpSignIn, CodeTooManyRequests)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(OpSignIn, CodeUserNotFound)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Infow("sign-in with wrong password", "user_id", user.ID)
		return nil, fail(OpSignIn, CodeWrongPassword)
	}
	s.limiter.reset(email)
	return s.startSession(user)
}

func (s *Service) startSession(user *model.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.publish(StateChange{UserID: user.ID, SignedIn: true})
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// SignOut revokes the token until its natural expiry.
func (s *Service) SignOut(_ context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ErrInvalidSession
	}
	s.mu.Lock()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.mu.Unlock()
	s.publish(StateChange{UserID: claims.UserID, SignedIn: false})
	return nil
}

// CurrentUserID resolves a session token to its user.
func (s *Service) CurrentUserID(_ context.Context, token string) (uint, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	if _, ok := s.revoked[claims.ID]; ok {
		return 0, ErrInvalidSession
	}
	return claims.UserID, nil
}

// OnAuthStateChange registers fn for sign-in/sign-out events and returns its remover.
func (s *Service) OnAuthStateChange(fn func(StateChange)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) publish(change StateChange) {
	s.mu.Lock()
	fns := make([]func(StateChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

// SendPasswordReset mails a one-time code. Only its hash is stored.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fail(OpPasswordReset, CodeMissingFields)
	}
	if !validEmail(email) {
		return fail(OpPasswordReset, CodeInvalidEmail)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(OpPasswordReset, CodeUserNotFound)
		}
		return err
	}

	code, err := randomToken()
	if err != nil {
		return err
	}
	reset := &model.PasswordReset{UserID: user.ID, TokenHash: hashToken(code), ExpiresAt: s.now().Add(resetTTL)}
	if err := s.resets.CreateReset(ctx, reset); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, code); err != nil {
		return err
	}
	s.log.Infow("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset code and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, code, password string) error {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(password) == "" {
		return fail(OpPasswordReset, CodeMissingFields)
	}
	if len(password) < minPasswordLength {
		return fail(OpPasswordReset, CodeWeakPassword)
	}

	reset, err := s.resets.FindReset(ctx, hashToken(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(OpPasswordReset, CodeInvalidResetToken)
		}
		return err
	}
	now := s.now()
	if reset.UsedAt != nil || now.After(reset.ExpiresAt) {
		return fail(OpPasswordReset, CodeInvalidResetToken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, string(hash)); err != nil {
		return err
	}
	reset.UsedAt = &now
	return s.resets.MarkResetUsed(ctx, reset)
}

// User loads the account behind a user id.
func (s *Service) User(ctx context.Context, id uint) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
