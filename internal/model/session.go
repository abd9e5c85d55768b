package model

import "time"

// Session is a server-side record of a successful admin login. The token is
// an opaque bearer credential; it is never serialized back to clients once
// issued.
type Session struct {
	ID             int64     `json:"id" db:"id"`
	AdminID        int64     `json:"admin_id" db:"admin_id"`
	Token          string    `json:"-" db:"session_token"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
}

// ValidAt reports whether the session may authenticate a request at t.
func (s *Session) ValidAt(t time.Time) bool {
	return s.IsActive && t.Before(s.ExpiresAt)
}
