package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/models"
	"github.com/isdelr/voicecraft-be/internal/store"
	"github.com/rs/zerolog/log"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUser(ctx context.Context, username string) (models.User, error)
	UpdateSettings(ctx context.Context, username string, in SettingsInput) (models.User, error)
}

// RegisterInput holds the registration form.
type RegisterInput struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SettingsInput holds the settings form. NewPassword may be empty to keep the current one.
type SettingsInput struct {
	Name            string `json:"name"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UserService provides business logic for accounts.
type UserService struct {
	users  store.UserStore
	events EventServiceProvider
	now    func() time.Time
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(users store.UserStore, events EventServiceProvider) *UserService {
	return &UserService{users: users, events: events, now: time.Now}
}

// Register creates an account with a zero conversion counter.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(in.Name)
	if username == "" || name == "" || in.Password == "" || in.ConfirmPassword == "" {
		return models.User{}, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return models.User{}, ErrPasswordsDontMatch
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return models.User{}, ErrPasswordTooLong
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.record("user.register", "info", "Account created", username)
	return user, nil
}

// Authenticate checks credentials. A legacy password hash is replaced with bcrypt on success.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, ErrMissingFields
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.record("user.login_failed", "warn", "Incorrect password", username)
			return models.User{}, ErrIncorrectPassword
		}
		return models.User{}, err
	}

	if auth.IsLegacyHash(user.PasswordHash) {
		user = s.upgradeHash(ctx, user, password)
	}

	s.record("user.login", "info", "Logged in", username)
	return user, nil
}

func (s *UserService) upgradeHash(ctx context.Context, user models.User, password string) models.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Failed to hash password for upgrade")
		return user
	}
	updated, err := s.users.Update(ctx, user.Username, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Failed to upgrade legacy password hash")
		return user
	}
	log.Info().Str("username", user.Username).Msg("Upgraded legacy password hash")
	return updated
}

// GetUser returns the account for username.
func (s *UserService) GetUser(ctx context.Context, username string) (models.User, error) {
	user, err := s.users.Get(ctx, username)
	if errors.Is(err, store.ErrUserNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateSettings changes the display name and optionally the password.
// The current password is always required.
func (s *UserService) UpdateSettings(ctx context.Context, username string, in SettingsInput) (models.User, error) {
	if in.CurrentPassword == "" {
		return models.User{}, ErrCurrentPasswordNeeded
	}
	if in.NewPassword != "" && in.NewPassword != in.ConfirmPassword {
		return models.User{}, ErrNewPasswordsDontMatch
	}
	if len(in.NewPassword) > auth.MaxPasswordBytes {
		return models.User{}, ErrPasswordTooLong
	}

	var newHash string
	if in.NewPassword != "" {
		h, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return models.User{}, err
		}
		newHash = h
	}

	name := strings.TrimSpace(in.Name)
	user, err := s.users.Update(ctx, username, func(u *models.User) error {
		if err := auth.VerifyPassword(u.PasswordHash, in.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return ErrCurrentPasswordWrong
			}
			return err
		}
		if name != "" {
			u.Name = name
		}
		if newHash != "" {
			u.PasswordHash = newHash
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	s.record("user.settings", "info", "Settings updated", username)
	return user, nil
}

func (s *UserService) record(eventType, level, message, username string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(eventType, level, message, &username); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}
