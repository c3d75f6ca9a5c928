// Package session keeps per-login state in memory: the conversion history and
// the most recent synthesis results. Nothing here survives a restart.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/voicecraft-be/internal/models"
)

var (
	// ErrSessionNotFound is returned for unknown or ended sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEntryNotFound is returned when a history entry does not exist.
	ErrEntryNotFound = errors.New("history entry not found")
	// ErrConversionNotFound is returned when a conversion was never produced or has been evicted.
	ErrConversionNotFound = errors.New("conversion not found")
)

// recentConversions bounds how many unsaved results a session remembers.
const recentConversions = 5

// Session is one login. Its methods are safe for concurrent use.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu         sync.Mutex
	history    []models.HistoryEntry // oldest first
	maxHistory int
	recent     []models.Conversion // oldest first
}

// Remember keeps c available for saving or download until newer results push it out.
func (s *Session) Remember(c models.Conversion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, c)
	if len(s.recent) > recentConversions {
		s.recent = s.recent[len(s.recent)-recentConversions:]
	}
}

// Conversion returns a remembered conversion.
func (s *Session) Conversion(id string) (models.Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.recent {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Conversion{}, ErrConversionNotFound
}

// AddHistory appends an entry, dropping the oldest ones beyond the cap.
func (s *Session) AddHistory(entry models.HistoryEntry) models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.history = append(s.history, entry)
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		s.history = append([]models.HistoryEntry(nil), s.history[len(s.history)-s.maxHistory:]...)
	}
	return entry
}

// History returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Session) History(limit int) []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.HistoryEntry, 0, n)
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// HistoryLen returns the number of saved entries.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// HistoryEntry returns a single entry by ID.
func (s *Session) HistoryEntry(id string) (models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.history {
		if e.ID == id {
			return e, nil
		}
	}
	return models.HistoryEntry{}, ErrEntryNotFound
}

// DeleteHistory removes exactly the entry with the given ID.
func (s *Session) DeleteHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.history {
		if e.ID == id {
			s.history = append(s.history[:i:i], s.history[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// ClearHistory removes every entry and returns how many were removed.
func (s *Session) ClearHistory() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	s.history = nil
	return n
}

// Manager tracks open sessions.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	ttl        time.Duration
	maxHistory int
	now        func() time.Time
}

// NewManager creates a manager whose sessions last ttl and hold at most maxHistory entries.
func NewManager(ttl time.Duration, maxHistory int) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Create opens a session for username.
func (m *Manager) Create(username string) *Session {
	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		Username:   username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		maxHistory: m.maxHistory,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns an open, unexpired session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Active reports whether id names an open session.
func (m *Manager) Active(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// End closes a session and discards its history.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Sweep removes expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of sessions currently tracked.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
