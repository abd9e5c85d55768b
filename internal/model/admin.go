package model

import "time"

// Admin represents an administrative user who can manage the exhibit catalog
// and other admins through the back office. Passwords are stored as salted
// PBKDF2 hashes (see internal/password).
type Admin struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email,omitempty" db:"email"`
	FullName     string     `json:"full_name,omitempty" db:"full_name"`
	PasswordHash string     `json:"-" db:"password_hash"` // never expose
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsSuperAdmin bool       `json:"is_super_admin" db:"is_super_admin"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
