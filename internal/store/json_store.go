package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/isdelr/voicecraft-be/internal/models"
)

// createdAtLayout is the minute-precision timestamp used in the user file.
const createdAtLayout = "2006-01-02 15:04"

// fileRecord is the on-disk shape of one user.
type fileRecord struct {
	Password         string `json:"password"`
	Name             string `json:"name"`
	CreatedAt        string `json:"created_at"`
	TotalConversions int    `json:"total_conversions"`
}

// JSONStore keeps every user in a single JSON object keyed by username.
// The whole file is read and rewritten on every mutation.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a store backed by path. The file is created on first write.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Get returns the user record for username.
func (s *JSONStore) Get(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return models.User{}, err
	}
	rec, ok := users[username]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return toModel(username, rec), nil
}

// Create adds a new user. Usernames are unique.
func (s *JSONStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := users[user.Username]; exists {
		return ErrUserExists
	}
	users[user.Username] = fromModel(user)
	return s.save(users)
}

// Update applies mutate to the stored record. The username cannot be changed.
func (s *JSONStore) Update(_ context.Context, username string, mutate func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return models.User{}, err
	}
	rec, ok := users[username]
	if !ok {
		return models.User{}, ErrUserNotFound
	}

	user := toModel(username, rec)
	if err := mutate(&user); err != nil {
		return models.User{}, err
	}
	user.Username = username
	users[username] = fromModel(user)
	if err := s.save(users); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// IncrementConversions bumps the conversion counter and returns the new total.
func (s *JSONStore) IncrementConversions(ctx context.Context, username string) (int, error) {
	user, err := s.Update(ctx, username, func(u *models.User) error {
		u.TotalConversions++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return user.TotalConversions, nil
}

func (s *JSONStore) load() (map[string]fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]fileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}
	users := map[string]fileRecord{}
	if len(data) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode user file: %w", err)
	}
	return users, nil
}

// save writes to a temp file in the same directory and renames it over the
// original so readers never observe a half-written file.
func (s *JSONStore) save(users map[string]fileRecord) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode user file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user file dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp user file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write user file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close user file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace user file: %w", err)
	}
	return nil
}

func toModel(username string, rec fileRecord) models.User {
	created, err := time.ParseInLocation(createdAtLayout, rec.CreatedAt, time.Local)
	if err != nil {
		created = time.Time{}
	}
	return models.User{
		Username:         username,
		PasswordHash:     rec.Password,
		Name:             rec.Name,
		CreatedAt:        created,
		TotalConversions: rec.TotalConversions,
	}
}

func fromModel(u models.User) fileRecord {
	rec := fileRecord{
		Password:         u.PasswordHash,
		Name:             u.Name,
		TotalConversions: u.TotalConversions,
	}
	if !u.CreatedAt.IsZero() {
		rec.CreatedAt = u.CreatedAt.Local().Format(createdAtLayout)
	}
	return rec
}
