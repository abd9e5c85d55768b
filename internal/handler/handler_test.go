package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/password"
	"github.com/mapgame/mapgame/internal/server/middleware"
	"github.com/mapgame/mapgame/internal/service"
	"github.com/mapgame/mapgame/internal/store"
	"github.com/mapgame/mapgame/internal/ui"
)

const testPassword = "supersecretpassword"

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store  *store.Store
	auth   *service.AuthService
	admins *service.AdminService
	router chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store and a
// Chi router with every handler mounted behind the session gate.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	auth := service.NewAuthService(st, service.WithLogger(logger))
	admins := service.NewAdminService(st, logger)

	authH := NewAuthHandler(auth, admins, st, ui.MustPages(), false, logger)
	adminH := NewAdminHandler(admins, auth, st, logger)
	mapH := NewMapHandler(st, logger)

	r := chi.NewRouter()
	r.Use(middleware.Gate(middleware.DefaultAccessTable(), auth, logger))

	r.Get("/admin/login", authH.LoginPage)
	r.Post("/admin/login", authH.LoginForm)
	r.Get("/admin/logout", authH.Logout)
	r.Post("/admin/logout", authH.Logout)
	r.Get("/admin/dashboard", middleware.Admin(authH.Dashboard))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.APILogout)
		r.Post("/setup", authH.Setup)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/me", middleware.Admin(adminH.Me))
		r.Get("/admins", middleware.Admin(adminH.List))
		r.Post("/admins", middleware.Admin(adminH.Create))
		r.Put("/admins/{id}/deactivate", middleware.Admin(adminH.Deactivate))
		r.Put("/admins/{id}/activate", middleware.Admin(adminH.Activate))
		r.Put("/admins/{id}/password", middleware.Admin(adminH.ChangePassword))
		r.Delete("/admins/{id}", middleware.Admin(adminH.Delete))
		r.Get("/sessions", middleware.Admin(adminH.Sessions))
		r.Post("/sessions/logout-all", middleware.Admin(adminH.LogoutAll))

		r.Get("/map-objects", middleware.Admin(mapH.AdminList))
		r.Post("/map-objects", middleware.Admin(mapH.AdminCreate))
		r.Get("/map-objects/{id}", middleware.Admin(mapH.AdminGet))
		r.Put("/map-objects/{id}", middleware.Admin(mapH.AdminUpdate))
		r.Delete("/map-objects/{id}", middleware.Admin(mapH.AdminDelete))
		r.Get("/map-objects/{id}/interactions", middleware.Admin(mapH.AdminInteractions))
	})

	r.Route("/api/map/objects", func(r chi.Router) {
		r.Get("/", mapH.ListObjects)
		r.Get("/nearby", mapH.NearbyObjects)
		r.Get("/unlocked", mapH.UnlockedObjects)
		r.Get("/type/{type}", mapH.ObjectsByType)
		r.Get("/{id}", mapH.GetObject)
		r.Post("/{id}/interact", mapH.Interact)
	})

	return &testEnv{store: st, auth: auth, admins: admins, router: r}
}

// seedAdmin creates an active admin with testPassword and returns it.
func (e *testEnv) seedAdmin(t *testing.T, username string) *model.Admin {
	t.Helper()
	hash, err := password.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	admin := &model.Admin{
		Username:     username,
		FullName:     "Test " + username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// session starts a session for admin and returns its token.
func (e *testEnv) session(t *testing.T, admin *model.Admin) string {
	t.Helper()
	token, err := e.auth.CreateSession(context.Background(), admin, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return token
}

// seedObject creates a discoverable map object.
func (e *testEnv) seedObject(t *testing.T, name, typ string, x, y, z float64, unlocked bool) *model.MapObject {
	t.Helper()
	o := model.NewMapObject()
	o.Name, o.Type = name, typ
	o.X, o.Y, o.Z = x, y, z
	o.IsUnlocked = unlocked
	if err := e.store.CreateMapObject(context.Background(), &o); err != nil {
		t.Fatalf("seedObject: %v", err)
	}
	return &o
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, "", method, path, body)
}

// doAs is do with a bearer session token.
func (e *testEnv) doAs(t *testing.T, token, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// serve executes a prepared request.
func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

// listResponse decodes the list envelope into items.
type listResponse[T any] struct {
	Resource []T `json:"resource"`
	Meta     struct {
		Count int `json:"count"`
	} `json:"meta"`
}
