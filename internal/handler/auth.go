package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/server/middleware"
	"github.com/mapgame/mapgame/internal/service"
	"github.com/mapgame/mapgame/internal/store"
	"github.com/mapgame/mapgame/internal/ui"
)

// invalidCredentialsMessage is shown for every failed login, whatever the
// reason, so responses never reveal which usernames exist.
const invalidCredentialsMessage = "Invalid username or password"

// AuthHandler serves the login and logout flows for both the HTML back
// office and the JSON API, plus the dashboard page.
type AuthHandler struct {
	auth         *service.AuthService
	admins       *service.AdminService
	store        *store.Store
	pages        *ui.Pages
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, admins *service.AdminService, st *store.Store, pages *ui.Pages, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		admins:       admins,
		store:        st,
		pages:        pages,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// HTML back office
// ---------------------------------------------------------------------------

// LoginPage renders the login form, or sends an already signed-in admin on
// to the dashboard.
// GET /admin/login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if _, err := h.auth.Resolve(r.Context(), token); err == nil {
			http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
			return
		}
	}
	h.renderLogin(w, http.StatusOK, ui.LoginData{})
}

// LoginForm handles the login form post.
// POST /admin/login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, ui.LoginData{Error: "Invalid form submission"})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.renderLogin(w, http.StatusBadRequest, ui.LoginData{Username: username, Error: "Username and password are required"})
		return
	}

	admin, err := h.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.renderLogin(w, http.StatusUnauthorized, ui.LoginData{Username: username, Error: invalidCredentialsMessage})
			return
		}
		h.logger.Error("login failed", "error", err)
		h.renderLogin(w, http.StatusInternalServerError, ui.LoginData{Username: username, Error: "Sign in is temporarily unavailable"})
		return
	}

	token, err := h.auth.CreateSession(r.Context(), admin, clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Error("create session failed", "admin_id", admin.ID, "error", err)
		h.renderLogin(w, http.StatusInternalServerError, ui.LoginData{Username: username, Error: "Sign in is temporarily unavailable"})
		return
	}

	middleware.SetSessionCookie(w, token, h.auth.SessionTTL(), h.cookieSecure)
	http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
}

// Logout ends the current session and returns to the login page.
// GET|POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
	}
	middleware.ClearSessionCookie(w, h.cookieSecure)
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
}

// Dashboard renders the admin landing page.
// GET /admin/dashboard
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	objects, err := h.store.ListMapObjects(r.Context(), store.MapObjectFilter{})
	if err != nil {
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	sessions, err := h.store.ListActiveSessions(r.Context(), admin.ID)
	if err != nil {
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.Dashboard(w, ui.DashboardData{
		Admin:        admin,
		ObjectCount:  len(objects),
		SessionCount: len(sessions),
	}); err != nil {
		h.logger.Error("render dashboard", "error", err)
	}
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, status int, data ui.LoginData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.pages.Login(w, data); err != nil {
		h.logger.Error("render login", "error", err)
	}
}

// ---------------------------------------------------------------------------
// JSON API
// ---------------------------------------------------------------------------

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string       `json:"session_token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	Admin     *model.Admin `json:"admin"`
}

// Login authenticates an admin and starts a session. The token is returned
// in the body for bearer use and set as the session cookie.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	admin, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, invalidCredentialsMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, "Authentication error")
		h.logger.Error("login failed", "error", err)
		return
	}

	token, err := h.auth.CreateSession(r.Context(), admin, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		h.logger.Error("create session failed", "admin_id", admin.ID, "error", err)
		return
	}

	ttl := h.auth.SessionTTL()
	middleware.SetSessionCookie(w, token, ttl, h.cookieSecure)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(ttl.Seconds()),
		Admin:     admin,
	})
}

// APILogout deactivates the session carried by the cookie or bearer token.
// Logging out without a session succeeds.
// POST /api/auth/logout
func (h *AuthHandler) APILogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		h.logger.Error("logout failed", "error", err)
		return
	}
	middleware.ClearSessionCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session invalidated",
	})
}

// Setup creates the first admin account. It is only available while no
// admin exists.
// POST /api/auth/setup
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req service.NewAdmin
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	admin, err := h.admins.Bootstrap(r.Context(), req)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

// writeAdminError maps AdminService errors to HTTP responses.
func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSelfAction):
		writeError(w, http.StatusBadRequest, "You cannot perform this action on your own account")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, service.ErrAdminNotFound):
		writeError(w, http.StatusNotFound, "Admin not found")
	case errors.Is(err, service.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "Username or email already exists")
	case errors.Is(err, service.ErrBootstrapClosed):
		writeError(w, http.StatusConflict, "An admin account already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Admin operation failed")
	}
}
