package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mapgame/mapgame/internal/model"
)

// tokenBytes is the amount of randomness in a session token. Encoded with
// base64.RawURLEncoding it yields a 43-character URL-safe string.
const tokenBytes = 32

// NewSessionToken returns a fresh opaque session token.
func NewSessionToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSession records a new active session for adminID that expires ttl
// from now and returns its token.
func (s *Store) CreateSession(ctx context.Context, adminID int64, ip, userAgent string, ttl time.Duration) (string, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", err
	}

	now := s.Now()
	sess := model.Session{
		AdminID:        adminID,
		Token:          token,
		IPAddress:      ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		IsActive:       true,
		LastActivityAt: now,
	}

	const q = `INSERT INTO admin_sessions
		(admin_id, session_token, ip_address, user_agent, created_at, expires_at, is_active, last_activity_at)
		VALUES
		(:admin_id, :session_token, :ip_address, :user_agent, :created_at, :expires_at, :is_active, :last_activity_at)
		RETURNING id`

	if _, err := insertReturningID(ctx, s.db, q, sess); err != nil {
		return "", classify("insert session", err)
	}
	return token, nil
}

// FindActiveSession returns the active session carrying token. Expiry is not
// checked here; callers compare ExpiresAt against their own clock. Unknown and
// deactivated tokens both yield ErrNotFound.
func (s *Store) FindActiveSession(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	q := s.db.Rebind("SELECT * FROM admin_sessions WHERE session_token = ? AND is_active = ?")
	if err := s.db.GetContext(ctx, &sess, q, token, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

// TouchSession sets last_activity_at to now.
func (s *Store) TouchSession(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admin_sessions SET last_activity_at = ? WHERE id = ?"), s.Now(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return rowsAffected(result, "touch session")
}

// DeactivateSession marks the session carrying token inactive. Unknown or
// already inactive tokens are a no-op.
func (s *Store) DeactivateSession(ctx context.Context, token string) error {
	q := s.db.Rebind("UPDATE admin_sessions SET is_active = ? WHERE session_token = ? AND is_active = ?")
	if _, err := s.db.ExecContext(ctx, q, false, token, true); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// DeactivateAdminSessions marks every active session of adminID inactive and
// returns how many were changed. Other admins' sessions are untouched.
func (s *Store) DeactivateAdminSessions(ctx context.Context, adminID int64) (int64, error) {
	q := s.db.Rebind("UPDATE admin_sessions SET is_active = ? WHERE admin_id = ? AND is_active = ?")
	result, err := s.db.ExecContext(ctx, q, false, adminID, true)
	if err != nil {
		return 0, fmt.Errorf("deactivate admin sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate admin sessions rows affected: %w", err)
	}
	return n, nil
}

// ListActiveSessions returns the active sessions of adminID, newest first.
// Pass adminID 0 to list the active sessions of every admin.
func (s *Store) ListActiveSessions(ctx context.Context, adminID int64) ([]model.Session, error) {
	sessions := []model.Session{}
	var err error
	if adminID == 0 {
		q := s.db.Rebind("SELECT * FROM admin_sessions WHERE is_active = ? ORDER BY created_at DESC, id DESC")
		err = s.db.SelectContext(ctx, &sessions, q, true)
	} else {
		q := s.db.Rebind("SELECT * FROM admin_sessions WHERE admin_id = ? AND is_active = ? ORDER BY created_at DESC, id DESC")
		err = s.db.SelectContext(ctx, &sessions, q, adminID, true)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// PruneSessions permanently deletes sessions that expired before cutoff and
// inactive sessions whose last activity is before cutoff. It returns the
// number of rows removed.
func (s *Store) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	q := s.db.Rebind(`DELETE FROM admin_sessions
		WHERE expires_at < ? OR (is_active = ? AND last_activity_at < ?)`)
	result, err := s.db.ExecContext(ctx, q, cutoff, false, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions rows affected: %w", err)
	}
	return n, nil
}
