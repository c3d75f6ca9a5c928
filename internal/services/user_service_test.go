package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/models"
	"github.com/isdelr/voicecraft-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, store.UserStore, *fakeEvents) {
	t.Helper()
	users := store.NewJSONStore(filepath.Join(t.TempDir(), "users.json"))
	events := &fakeEvents{}
	return NewUserService(users, events), users, events
}

func TestRegister(t *testing.T) {
	svc, _, events := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: " alice ", Name: "Alice", Password: "pw", ConfirmPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 0, user.TotalConversions)
	assert.NotEqual(t, "pw", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Name: "Other", Password: "x", ConfirmPassword: "x"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	assert.Equal(t, []string{"user.register"}, events.types())
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newUserService(t)
	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing name", RegisterInput{Username: "bob", Password: "a", ConfirmPassword: "a"}, ErrMissingFields},
		{"blank username", RegisterInput{Username: "  ", Name: "Bob", Password: "a", ConfirmPassword: "a"}, ErrMissingFields},
		{"mismatch", RegisterInput{Username: "bob", Name: "Bob", Password: "a", ConfirmPassword: "b"}, ErrPasswordsDontMatch},
		{"too long", RegisterInput{Username: "bob", Name: "Bob", Password: strings.Repeat("p", 73), ConfirmPassword: strings.Repeat("p", 73)}, ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, events := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Name: "Alice", Password: "secret", ConfirmPassword: "secret"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = svc.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.Equal(t, []string{"user.register", "user.login", "user.login_failed"}, events.types())
}

func TestAuthenticate_SharedPrefixDoesNotLogIn(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	prefix := strings.Repeat("a", 72)

	_, err := svc.Register(ctx, RegisterInput{Username: "u", Name: "U", Password: prefix + "correct", ConfirmPassword: prefix + "correct"})
	require.ErrorIs(t, err, ErrPasswordTooLong)
	assert.True(t, IsValidationError(err))

	_, err = svc.Register(ctx, RegisterInput{Username: "u", Name: "U", Password: prefix, ConfirmPassword: prefix})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "u", prefix+"WRONG")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	_, err = svc.Authenticate(ctx, "u", prefix)
	assert.NoError(t, err)

	long := prefix + "x"
	_, err = svc.UpdateSettings(ctx, "u", SettingsInput{CurrentPassword: prefix, NewPassword: long, ConfirmPassword: long})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestAuthenticate_UpgradesLegacyHash(t *testing.T) {
	svc, users, _ := newUserService(t)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("old-password"))
	require.NoError(t, users.Create(ctx, models.User{
		Username:     "legacy",
		PasswordHash: hex.EncodeToString(sum[:]),
		Name:         "Legacy User",
		CreatedAt:    time.Now(),
	}))

	_, err := svc.Authenticate(ctx, "legacy", "old-password")
	require.NoError(t, err)

	stored, err := users.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.False(t, auth.IsLegacyHash(stored.PasswordHash))
	assert.NoError(t, auth.VerifyPassword(stored.PasswordHash, "old-password"))

	_, err = svc.Authenticate(ctx, "legacy", "old-password")
	assert.NoError(t, err)
}

func TestUpdateSettings(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Name: "Alice", Password: "one", ConfirmPassword: "one"})
	require.NoError(t, err)

	_, err = svc.UpdateSettings(ctx, "alice", SettingsInput{Name: "A"})
	assert.ErrorIs(t, err, ErrCurrentPasswordNeeded)

	_, err = svc.UpdateSettings(ctx, "alice", SettingsInput{Name: "A", CurrentPassword: "nope"})
	assert.ErrorIs(t, err, ErrCurrentPasswordWrong)

	_, err = svc.UpdateSettings(ctx, "alice", SettingsInput{CurrentPassword: "one", NewPassword: "two", ConfirmPassword: "three"})
	assert.ErrorIs(t, err, ErrNewPasswordsDontMatch)

	user, err := svc.UpdateSettings(ctx, "alice", SettingsInput{Name: "Alice Cooper", CurrentPassword: "one", NewPassword: "two", ConfirmPassword: "two"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", user.Name)

	_, err = svc.Authenticate(ctx, "alice", "one")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	_, err = svc.Authenticate(ctx, "alice", "two")
	assert.NoError(t, err)

	// Name only; password stays.
	user, err = svc.UpdateSettings(ctx, "alice", SettingsInput{Name: "Al", CurrentPassword: "two"})
	require.NoError(t, err)
	assert.Equal(t, "Al", user.Name)
	_, err = svc.Authenticate(ctx, "alice", "two")
	assert.NoError(t, err)

	_, err = svc.UpdateSettings(ctx, "ghost", SettingsInput{CurrentPassword: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
