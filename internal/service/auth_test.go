package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/password"
	"github.com/mapgame/mapgame/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type countingRecorder struct {
	logins   map[string]int
	resolves map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{logins: map[string]int{}, resolves: map[string]int{}}
}

func (r *countingRecorder) LoginAttempt(outcome string)    { r.logins[outcome]++ }
func (r *countingRecorder) SessionResolved(outcome string) { r.resolves[outcome]++ }

type authEnv struct {
	auth     *AuthService
	store    *store.Store
	clock    *fakeClock
	recorder *countingRecorder
}

func newTestAuth(t *testing.T, opts ...AuthOption) *authEnv {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)}
	st, err := store.NewStore("", store.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rec := newCountingRecorder()
	opts = append([]AuthOption{WithClock(clock.Now), WithRecorder(rec)}, opts...)
	return &authEnv{auth: NewAuthService(st, opts...), store: st, clock: clock, recorder: rec}
}

func (e *authEnv) createAdmin(t *testing.T, username, pw string) *model.Admin {
	t.Helper()
	hash, err := password.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	a := &model.Admin{Username: username, PasswordHash: hash, IsActive: true}
	if err := e.store.CreateAdmin(context.Background(), a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return a
}

func TestAliceLoginScenario(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	env.createAdmin(t, "alice", "s3cret-pass")

	admin, err := env.auth.Authenticate(ctx, "alice", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if admin.LastLoginAt == nil {
		t.Error("expected LastLoginAt on returned admin")
	}
	stored, _ := env.store.GetAdmin(ctx, admin.ID)
	if stored.LastLoginAt == nil {
		t.Error("expected last_login_at persisted")
	}

	token, err := env.auth.CreateSession(ctx, admin, "127.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resolved, err := env.auth.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Username != "alice" {
		t.Errorf("resolved %q, want alice", resolved.Username)
	}

	if err := env.auth.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = env.auth.Resolve(ctx, token)
	if !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Resolve after logout err = %v, want ErrInvalidSession", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Error("revoked session must not report expiry")
	}

	if env.recorder.logins[OutcomeSuccess] != 1 {
		t.Errorf("login successes = %d, want 1", env.recorder.logins[OutcomeSuccess])
	}
	if env.recorder.resolves[OutcomeUnknown] != 1 {
		t.Errorf("unknown resolutions = %d, want 1", env.recorder.resolves[OutcomeUnknown])
	}
}

func TestAuthenticateFailures(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	alice := env.createAdmin(t, "alice", "s3cret-pass")
	carol := env.createAdmin(t, "carol", "carol-pass")
	if err := env.store.SetAdminActive(ctx, carol.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}
	before := map[int64]time.Time{}
	for _, id := range []int64{alice.ID, carol.ID} {
		a, err := env.store.GetAdmin(ctx, id)
		if err != nil {
			t.Fatalf("GetAdmin: %v", err)
		}
		before[id] = a.UpdatedAt
	}
	// Any write from here on would carry a later timestamp.
	env.clock.Advance(time.Hour)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "nope-nope"},
		{"unknown user", "mallory", "s3cret-pass"},
		{"inactive user", "carol", "carol-pass"},
		{"empty password", "alice", ""},
		{"username case matters", "ALICE", "s3cret-pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}

	stored, _ := env.store.GetAdmin(ctx, alice.ID)
	if stored.LastLoginAt != nil {
		t.Error("failed logins must not touch last_login_at")
	}
	for id, was := range before {
		a, _ := env.store.GetAdmin(ctx, id)
		if !a.UpdatedAt.Equal(was) {
			t.Errorf("admin %d updated_at changed from %v to %v", id, was, a.UpdatedAt)
		}
	}
	sessions, _ := env.store.ListActiveSessions(ctx, 0)
	if len(sessions) != 0 {
		t.Errorf("failed logins created %d sessions", len(sessions))
	}
	if env.recorder.logins[OutcomeInvalidCredentials] != len(tests) {
		t.Errorf("invalid credential count = %d, want %d", env.recorder.logins[OutcomeInvalidCredentials], len(tests))
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	env := newTestAuth(t, WithSessionTTL(time.Second))
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")

	token, err := env.auth.CreateSession(ctx, admin, "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := env.auth.Resolve(ctx, token); err != nil {
		t.Fatalf("Resolve before expiry: %v", err)
	}

	env.clock.Advance(999 * time.Millisecond)
	if _, err := env.auth.Resolve(ctx, token); err != nil {
		t.Fatalf("Resolve just before expiry: %v", err)
	}

	env.clock.Advance(2 * time.Second)
	_, err = env.auth.Resolve(ctx, token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
	if !errors.Is(err, ErrInvalidSession) {
		t.Error("ErrSessionExpired must match ErrInvalidSession")
	}

	// Expiry does not deactivate the row.
	if _, err := env.store.FindActiveSession(ctx, token); err != nil {
		t.Errorf("expired session row was deactivated: %v", err)
	}
	if env.recorder.resolves[OutcomeExpired] != 1 {
		t.Errorf("expired count = %d, want 1", env.recorder.resolves[OutcomeExpired])
	}
}

func TestSessionExpiresExactlyAtDeadline(t *testing.T) {
	env := newTestAuth(t, WithSessionTTL(time.Minute))
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")

	token, _ := env.auth.CreateSession(ctx, admin, "", "")
	env.clock.Advance(time.Minute)
	if _, err := env.auth.Resolve(ctx, token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err at expires_at = %v, want ErrSessionExpired", err)
	}
}

func TestResolveTouchesSession(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")

	token, _ := env.auth.CreateSession(ctx, admin, "", "")
	env.clock.Advance(10 * time.Minute)
	if _, err := env.auth.Resolve(ctx, token); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	sess, _ := env.store.FindActiveSession(ctx, token)
	if !sess.LastActivityAt.Equal(env.clock.Now()) {
		t.Errorf("LastActivityAt = %v, want %v", sess.LastActivityAt, env.clock.Now())
	}
}

func TestTwoSessionsAndLogoutAll(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	alice := env.createAdmin(t, "alice", "s3cret-pass")
	bob := env.createAdmin(t, "bob", "bob-password")

	laptop, _ := env.auth.CreateSession(ctx, alice, "10.0.0.1", "laptop")
	phone, _ := env.auth.CreateSession(ctx, alice, "10.0.0.2", "phone")
	bobTok, _ := env.auth.CreateSession(ctx, bob, "10.0.0.3", "desktop")

	for _, tok := range []string{laptop, phone, bobTok} {
		if _, err := env.auth.Resolve(ctx, tok); err != nil {
			t.Fatalf("Resolve before logout-all: %v", err)
		}
	}

	n, err := env.auth.LogoutAll(ctx, alice.ID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 2 {
		t.Errorf("LogoutAll ended %d sessions, want 2", n)
	}

	for _, tok := range []string{laptop, phone} {
		if _, err := env.auth.Resolve(ctx, tok); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("alice session err = %v, want ErrInvalidSession", err)
		}
	}
	if _, err := env.auth.Resolve(ctx, bobTok); err != nil {
		t.Errorf("bob session affected by alice's logout-all: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")
	token, _ := env.auth.CreateSession(ctx, admin, "", "")

	for i := 0; i < 3; i++ {
		if err := env.auth.Logout(ctx, token); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
	}
	if err := env.auth.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Logout(unknown): %v", err)
	}
	if err := env.auth.Logout(ctx, ""); err != nil {
		t.Errorf("Logout(empty): %v", err)
	}
}

func TestResolveRejectsMalformedTokens(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	long := make([]byte, maxTokenLength+1)
	for i := range long {
		long[i] = 'a'
	}
	for _, tok := range []string{"", string(long), "not-a-real-token"} {
		if _, err := env.auth.Resolve(ctx, tok); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("Resolve(%.10q) err = %v, want ErrInvalidSession", tok, err)
		}
	}
}

func TestResolveInactiveAdmin(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")
	token, _ := env.auth.CreateSession(ctx, admin, "", "")

	if err := env.store.SetAdminActive(ctx, admin.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}
	if _, err := env.auth.Resolve(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
	if env.recorder.resolves[OutcomeInactiveAdmin] != 1 {
		t.Errorf("inactive_admin count = %d, want 1", env.recorder.resolves[OutcomeInactiveAdmin])
	}
}

func TestResolveStorageErrorIsNotAuthFailure(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")
	token, _ := env.auth.CreateSession(ctx, admin, "", "")

	env.store.Close()

	_, err := env.auth.Resolve(ctx, token)
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if errors.Is(err, ErrInvalidSession) {
		t.Error("storage failure must not be reported as an invalid session")
	}
}

func TestDefaultSessionTTL(t *testing.T) {
	env := newTestAuth(t)
	if got := env.auth.SessionTTL(); got != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 168h", got)
	}

	ctx := context.Background()
	admin := env.createAdmin(t, "alice", "s3cret-pass")
	token, _ := env.auth.CreateSession(ctx, admin, "", "")
	sess, _ := env.store.FindActiveSession(ctx, token)
	if want := env.clock.Now().Add(7 * 24 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, want)
	}
}
