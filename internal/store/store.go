// Package store persists user accounts.
package store

import (
	"context"
	"errors"

	"github.com/isdelr/voicecraft-be/internal/models"
)

var (
	// ErrUserExists is returned when creating a username that is already taken.
	ErrUserExists = errors.New("username already exists")
	// ErrUserNotFound is returned when no record exists for a username.
	ErrUserNotFound = errors.New("user not found")
)

// UserStore is the persistence contract shared by the JSON file and SQLite backends.
type UserStore interface {
	Get(ctx context.Context, username string) (models.User, error)
	Create(ctx context.Context, user models.User) error
	// Update loads the record, applies mutate and writes the result back.
	// An error from mutate aborts the write.
	Update(ctx context.Context, username string, mutate func(*models.User) error) (models.User, error)
	IncrementConversions(ctx context.Context, username string) (int, error)
}
