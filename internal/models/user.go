package models

import "time"

// User represents a registered account.
type User struct {
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"` // Never expose this to the client
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"createdAt"`
	TotalConversions int       `json:"totalConversions"`
}
