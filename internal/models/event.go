package models

import "time"

// Event represents a recorded user action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "tts.convert", "user.login"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	Username  *string   `json:"username,omitempty"` // Nullable for system-wide events
	CreatedAt time.Time `json:"createdAt"`
}
