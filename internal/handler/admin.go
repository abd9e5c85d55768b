package handler

import (
	"log/slog"
	"net/http"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/service"
	"github.com/mapgame/mapgame/internal/store"
)

// AdminHandler manages admin accounts and the caller's sessions. Every
// method expects the authenticated admin from middleware.Admin.
type AdminHandler struct {
	admins *service.AdminService
	auth   *service.AuthService
	store  *store.Store
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admins *service.AdminService, auth *service.AuthService, st *store.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admins: admins, auth: auth, store: st, logger: logger}
}

// Me returns the authenticated admin.
// GET /api/admin/me
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	writeJSON(w, http.StatusOK, admin)
}

// List returns all admin accounts.
// GET /api/admin/admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request, _ *model.Admin) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list admins")
		return
	}
	writeList(w, admins)
}

// Create adds an admin account.
// POST /api/admin/admins
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request, actor *model.Admin) {
	var req service.NewAdmin
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	admin, err := h.admins.Create(r.Context(), req)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	h.logger.Info("admin created via api", "admin_id", admin.ID, "by", actor.ID)
	writeJSON(w, http.StatusCreated, admin)
}

// Deactivate disables another admin account.
// PUT /api/admin/admins/{id}/deactivate
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request, actor *model.Admin) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.admins.Deactivate(r.Context(), actor.ID, id); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Admin deactivated"})
}

// Activate re-enables an admin account.
// PUT /api/admin/admins/{id}/activate
func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request, actor *model.Admin) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.admins.Activate(r.Context(), actor.ID, id); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Admin activated"})
}

// Delete removes another admin account and its sessions.
// DELETE /api/admin/admins/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request, actor *model.Admin) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.admins.Delete(r.Context(), actor.ID, id); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Admin deleted"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword sets an admin's password. The caller's own password
// requires old_password.
// PUT /api/admin/admins/{id}/password
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request, actor *model.Admin) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req changePasswordRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.admins.ChangePassword(r.Context(), actor.ID, id, req.OldPassword, req.NewPassword); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Password changed"})
}

// Sessions lists the caller's active sessions. Tokens are never included.
// GET /api/admin/sessions
func (h *AdminHandler) Sessions(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	sessions, err := h.store.ListActiveSessions(r.Context(), admin.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	writeList(w, sessions)
}

// LogoutAll ends every session of the caller, including the current one.
// POST /api/admin/sessions/logout-all
func (h *AdminHandler) LogoutAll(w http.ResponseWriter, r *http.Request, admin *model.Admin) {
	n, err := h.auth.LogoutAll(r.Context(), admin.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to end sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sessions_ended": n})
}
