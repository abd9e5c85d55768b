package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/service"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if respID := rr.Header().Get("X-Request-ID"); respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("x", 200)} {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q: got %q, want a generated UUID", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// AccessTable tests
// ---------------------------------------------------------------------------

func TestDefaultAccessTable(t *testing.T) {
	table := DefaultAccessTable()

	tests := []struct {
		path string
		want Policy
	}{
		// Allow-list prefixes.
		{"/admin/login", PolicyBypass},
		{"/admin/login/", PolicyBypass},
		{"/Admin/Login", PolicyBypass},
		{"/api/auth/login", PolicyBypass},
		{"/api/auth/setup", PolicyBypass},
		{"/swagger/openapi.json", PolicyBypass},
		{"/_framework/blazor.js", PolicyBypass},
		{"/css/site.css", PolicyBypass},
		{"/js/app.js", PolicyBypass},
		{"/assets/logo.png", PolicyBypass},
		{"/JS/APP.JS", PolicyBypass},
		// Exact matches.
		{"/", PolicyBypass},
		{"/index.html", PolicyBypass},
		{"/INDEX.HTML", PolicyBypass},
		{"/index.html/extra", PolicyOptional},
		// Admin area.
		{"/admin", PolicyAdmin},
		{"/admin/", PolicyAdmin},
		{"/admin/dashboard", PolicyAdmin},
		{"/admin/logout", PolicyAdmin},
		{"/ADMIN/dashboard", PolicyAdmin},
		// Everything else.
		{"/api/map/objects", PolicyOptional},
		{"/api/admin/me", PolicyOptional},
		{"/healthz", PolicyOptional},
		{"/metrics", PolicyOptional},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := table.Lookup(tt.path); got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewAccessTableValidation(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"missing slash", []Rule{{Pattern: "admin", Policy: PolicyAdmin}}},
		{"duplicate", []Rule{{Pattern: "/a"}, {Pattern: "/A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAccessTable(tt.rules); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// The same pattern may appear once as exact and once as prefix.
	if _, err := NewAccessTable([]Rule{{Pattern: "/x", Exact: true}, {Pattern: "/x"}}); err != nil {
		t.Errorf("exact+prefix pair rejected: %v", err)
	}
}

func TestAccessTableOrdering(t *testing.T) {
	table, err := NewAccessTable([]Rule{
		{Pattern: "/a", Policy: PolicyAdmin},
		{Pattern: "/a/b", Policy: PolicyBypass},
		{Pattern: "/a", Exact: true, Policy: PolicyOptional},
	})
	if err != nil {
		t.Fatalf("NewAccessTable: %v", err)
	}
	rules := table.Rules()
	if !rules[0].Exact || rules[1].Pattern != "/a/b" || rules[2].Pattern != "/a" {
		t.Errorf("unexpected rule order %+v", rules)
	}
	if got := table.Lookup("/a"); got != PolicyOptional {
		t.Errorf("exact /a = %v, want optional", got)
	}
	if got := table.Lookup("/a/b/c"); got != PolicyBypass {
		t.Errorf("/a/b/c = %v, want bypass", got)
	}
	if got := table.Lookup("/a/c"); got != PolicyAdmin {
		t.Errorf("/a/c = %v, want admin", got)
	}
}

// ---------------------------------------------------------------------------
// Gate tests
// ---------------------------------------------------------------------------

type stubResolver struct {
	admins map[string]*model.Admin
	errs   map[string]error
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, token string) (*model.Admin, error) {
	s.calls++
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if a, ok := s.admins[token]; ok {
		return a, nil
	}
	return nil, service.ErrInvalidSession
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		admins: map[string]*model.Admin{"good": {ID: 1, Username: "alice", IsActive: true}},
		errs: map[string]error{
			"expired": service.ErrSessionExpired,
			"broken":  errors.New("database is locked"),
		},
	}
}

// echoAdmin writes the username of the gate's admin, or "anonymous".
var echoAdmin = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if a := AdminFromContext(r.Context()); a != nil {
		w.Write([]byte(a.Username))
		return
	}
	w.Write([]byte("anonymous"))
})

func serveGate(t *testing.T, res Resolver, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	h := Gate(DefaultAccessTable(), res, slog.New(slog.DiscardHandler))(echoAdmin)
	req := httptest.NewRequest("GET", path, nil)
	if setup != nil {
		setup(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestGateAdminAreaRedirects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no token", nil},
		{"unknown token", withCookie("bogus")},
		{"expired token", withCookie("expired")},
		{"bad bearer", withBearer("bogus")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveGate(t, newStubResolver(), "/admin/dashboard", tt.setup)
			if rr.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", rr.Code)
			}
			if loc := rr.Header().Get("Location"); loc != LoginPath {
				t.Errorf("Location = %q, want %q", loc, LoginPath)
			}
		})
	}
}

func TestGateAdminAreaWithValidSession(t *testing.T) {
	for name, setup := range map[string]func(*http.Request){
		"cookie": withCookie("good"),
		"bearer": withBearer("good"),
	} {
		t.Run(name, func(t *testing.T) {
			rr := serveGate(t, newStubResolver(), "/admin/dashboard", setup)
			if rr.Code != http.StatusOK || rr.Body.String() != "alice" {
				t.Errorf("got %d %q, want 200 alice", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGateOptionalPassesThrough(t *testing.T) {
	res := newStubResolver()

	rr := serveGate(t, res, "/api/map/objects", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "anonymous" {
		t.Errorf("no token: got %d %q", rr.Code, rr.Body.String())
	}

	rr = serveGate(t, res, "/api/map/objects", withCookie("expired"))
	if rr.Code != http.StatusOK || rr.Body.String() != "anonymous" {
		t.Errorf("expired token: got %d %q", rr.Code, rr.Body.String())
	}

	rr = serveGate(t, res, "/api/admin/me", withCookie("good"))
	if rr.Body.String() != "alice" {
		t.Errorf("valid token: got %q, want alice", rr.Body.String())
	}
}

func TestGateBypassSkipsResolution(t *testing.T) {
	res := newStubResolver()
	for _, path := range []string{"/admin/login", "/api/auth/login", "/", "/css/app.css"} {
		rr := serveGate(t, res, path, withCookie("good"))
		if rr.Code != http.StatusOK || rr.Body.String() != "anonymous" {
			t.Errorf("%s: got %d %q, want 200 anonymous", path, rr.Code, rr.Body.String())
		}
	}
	if res.calls != 0 {
		t.Errorf("resolver called %d times on bypass paths", res.calls)
	}
}

func TestGateStorageFailureIs500(t *testing.T) {
	for _, path := range []string{"/admin/dashboard", "/api/map/objects"} {
		rr := serveGate(t, newStubResolver(), path, withCookie("broken"))
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rr.Code)
		}
	}
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(req); got != "from-cookie" {
		t.Errorf("got %q, want from-cookie", got)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer  padded-token ")
	if got := TokenFromRequest(req); got != "padded-token" {
		t.Errorf("got %q, want padded-token", got)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := TokenFromRequest(req); got != "" {
		t.Errorf("basic auth yielded token %q", got)
	}
}

// ---------------------------------------------------------------------------
// Admin adapter and cookie tests
// ---------------------------------------------------------------------------

func TestAdminAdapter(t *testing.T) {
	h := Admin(func(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
		w.Write([]byte(admin.Username))
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/admin/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}
	var body model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != http.StatusUnauthorized {
		t.Errorf("error code = %d, want 401", body.Error.Code)
	}

	req := httptest.NewRequest("GET", "/api/admin/me", nil)
	req = req.WithContext(WithAdmin(req.Context(), &model.Admin{ID: 2, Username: "bob"}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Body.String() != "bob" {
		t.Errorf("got %q, want bob", rr.Body.String())
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", 7*24*time.Hour, false)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "AdminSession" || c.Value != "tok" || c.Path != "/" {
		t.Errorf("unexpected cookie %+v", c)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie must be HttpOnly and SameSite=Lax: %+v", c)
	}
	if c.MaxAge != 7*24*60*60 {
		t.Errorf("MaxAge = %d, want one week", c.MaxAge)
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr, true)
	c = rr.Result().Cookies()[0]
	if c.MaxAge >= 0 || !c.Secure {
		t.Errorf("clear cookie: %+v", c)
	}
}

// ---------------------------------------------------------------------------
// Rate limit and logger tests
// ---------------------------------------------------------------------------

func TestLoginRateLimit(t *testing.T) {
	h := LoginRateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third attempt status = %d, want 429", last)
	}
}

func TestLoginRateLimitDisabled(t *testing.T) {
	h := LoginRateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/auth/login", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d status = %d, want 200", i+1, rr.Code)
		}
	}
}

func TestLoggerRecordsAdminID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logger(logger)(Gate(DefaultAccessTable(), newStubResolver(), logger)(echoAdmin))
	req := httptest.NewRequest("GET", "/api/map/objects", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["admin_id"] != float64(1) {
		t.Errorf("admin_id = %v, want 1", entry["admin_id"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if strings.Contains(buf.String(), "good") {
		t.Error("session token leaked into access log")
	}
}
