package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/voicecraft-be/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore keeps users in the service database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.Username, &user.PasswordHash, &user.Name, &user.TotalConversions, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

const selectUser = `SELECT username, password_hash, name, total_conversions, created_at FROM users WHERE username = ?`

// Get returns the user record for username.
func (s *SQLiteStore) Get(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser, username))
}

// Create inserts a new user.
func (s *SQLiteStore) Create(ctx context.Context, user models.User) error {
	created := user.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, name, total_conversions, created_at) VALUES (?, ?, ?, ?, ?)",
		user.Username, user.PasswordHash, user.Name, user.TotalConversions, created.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update applies mutate inside a transaction.
func (s *SQLiteStore) Update(ctx context.Context, username string, mutate func(*models.User) error) (models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx, selectUser, username))
	if err != nil {
		return models.User{}, err
	}
	if err := mutate(&user); err != nil {
		return models.User{}, err
	}
	user.Username = username

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, name = ?, total_conversions = ? WHERE username = ?",
		user.PasswordHash, user.Name, user.TotalConversions, username,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// IncrementConversions bumps the counter in a single statement.
func (s *SQLiteStore) IncrementConversions(ctx context.Context, username string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"UPDATE users SET total_conversions = total_conversions + 1 WHERE username = ? RETURNING total_conversions",
		username,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("increment conversions: %w", err)
	}
	return total, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
