package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/password"
	"github.com/mapgame/mapgame/internal/store"
)

// DefaultSessionTTL is how long a new admin session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// maxTokenLength bounds what Resolve will look up. Issued tokens are 43 chars.
const maxTokenLength = 256

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = fmt.Errorf("session expired: %w", ErrInvalidSession)
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeMissing            = "missing"
	OutcomeUnknown            = "unknown"
	OutcomeExpired            = "expired"
	OutcomeInactiveAdmin      = "inactive_admin"
	OutcomeError              = "error"
)

// SessionStore is the persistence the authenticator needs for sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, adminID int64, ip, userAgent string, ttl time.Duration) (string, error)
	FindActiveSession(ctx context.Context, token string) (*model.Session, error)
	TouchSession(ctx context.Context, id int64) error
	DeactivateSession(ctx context.Context, token string) error
	DeactivateAdminSessions(ctx context.Context, adminID int64) (int64, error)
}

// AuthStore is SessionStore plus the admin lookups used during login and
// resolution. *store.Store satisfies it.
type AuthStore interface {
	SessionStore
	GetAdmin(ctx context.Context, id int64) (*model.Admin, error)
	GetActiveAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	UpdateAdminLastLogin(ctx context.Context, id int64) error
}

// Recorder receives authentication outcomes, typically for metrics.
type Recorder interface {
	LoginAttempt(outcome string)
	SessionResolved(outcome string)
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithSessionTTL sets the lifetime of sessions created by CreateSession.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithLogger sets the logger for authentication events.
func WithLogger(logger *slog.Logger) AuthOption {
	return func(s *AuthService) { s.logger = logger }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) AuthOption {
	return func(s *AuthService) { s.recorder = r }
}

// AuthService verifies admin credentials and manages the server-side
// sessions that authenticate later requests.
type AuthService struct {
	store    AuthStore
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

func NewAuthService(st AuthStore, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:  st,
		ttl:    DefaultSessionTTL,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL returns the lifetime applied to new sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming runs one key derivation so unknown usernames cost the same
// as wrong passwords.
func equalizeTiming(pw string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = password.Hash("mapgame-dummy-password")
	})
	password.Verify(pw, dummyHash)
}

// Authenticate checks username and password against the active admin
// accounts. Unknown users, inactive users and wrong passwords all yield
// ErrInvalidCredentials and leave no trace in the store. On success the
// admin's last login time is updated.
func (s *AuthService) Authenticate(ctx context.Context, username, pw string) (*model.Admin, error) {
	admin, err := s.store.GetActiveAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			equalizeTiming(pw)
			s.loginFailed(username)
			return nil, ErrInvalidCredentials
		}
		s.record(true, OutcomeError)
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	if !password.Verify(pw, admin.PasswordHash) {
		s.loginFailed(username)
		return nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		s.record(true, OutcomeError)
		return nil, fmt.Errorf("record login: %w", err)
	}
	now := s.now().UTC()
	admin.LastLoginAt = &now
	admin.UpdatedAt = now

	s.record(true, OutcomeSuccess)
	s.logger.Info("admin login", "admin_id", admin.ID, "username", admin.Username)
	return admin, nil
}

func (s *AuthService) loginFailed(username string) {
	s.record(true, OutcomeInvalidCredentials)
	s.logger.Warn("admin login failed", "username", username, "outcome", OutcomeInvalidCredentials)
}

// CreateSession starts a new session for admin and returns its token.
func (s *AuthService) CreateSession(ctx context.Context, admin *model.Admin, ip, userAgent string) (string, error) {
	token, err := s.store.CreateSession(ctx, admin.ID, ip, userAgent, s.ttl)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Resolve maps a session token to the admin it authenticates and refreshes
// the session's last activity. Unknown, revoked and expired tokens as well as
// sessions of missing or inactive admins all yield an error matching
// ErrInvalidSession; expiry additionally matches ErrSessionExpired. Any other
// error comes from storage.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.Admin, error) {
	if token == "" || len(token) > maxTokenLength {
		s.record(false, OutcomeMissing)
		return nil, ErrInvalidSession
	}

	sess, err := s.store.FindActiveSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record(false, OutcomeUnknown)
			return nil, ErrInvalidSession
		}
		s.record(false, OutcomeError)
		return nil, fmt.Errorf("find session: %w", err)
	}

	if !sess.ValidAt(s.now()) {
		s.record(false, OutcomeExpired)
		s.logger.Debug("session expired", "session_id", sess.ID, "admin_id", sess.AdminID)
		return nil, ErrSessionExpired
	}

	admin, err := s.store.GetAdmin(ctx, sess.AdminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record(false, OutcomeInactiveAdmin)
			return nil, ErrInvalidSession
		}
		s.record(false, OutcomeError)
		return nil, fmt.Errorf("load session admin: %w", err)
	}
	if !admin.IsActive {
		s.record(false, OutcomeInactiveAdmin)
		s.logger.Debug("session belongs to inactive admin", "session_id", sess.ID, "admin_id", admin.ID)
		return nil, ErrInvalidSession
	}

	if err := s.store.TouchSession(ctx, sess.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record(false, OutcomeUnknown)
			return nil, ErrInvalidSession
		}
		s.record(false, OutcomeError)
		return nil, fmt.Errorf("touch session: %w", err)
	}

	s.record(false, OutcomeSuccess)
	return admin, nil
}

// Logout deactivates the session carrying token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeactivateSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll deactivates every active session of adminID and returns how
// many were ended.
func (s *AuthService) LogoutAll(ctx context.Context, adminID int64) (int64, error) {
	n, err := s.store.DeactivateAdminSessions(ctx, adminID)
	if err != nil {
		return 0, fmt.Errorf("logout all: %w", err)
	}
	s.logger.Info("admin sessions revoked", "admin_id", adminID, "count", n)
	return n, nil
}

func (s *AuthService) record(login bool, outcome string) {
	if s.recorder == nil {
		return
	}
	if login {
		s.recorder.LoginAttempt(outcome)
	} else {
		s.recorder.SessionResolved(outcome)
	}
}
