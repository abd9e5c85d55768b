package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mapgame/mapgame/internal/model"
	"github.com/mapgame/mapgame/internal/password"
	"github.com/mapgame/mapgame/internal/store"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSelfAction       = errors.New("cannot perform this action on your own account")
	ErrBootstrapClosed  = errors.New("initial admin already exists")
	ErrDuplicateAccount = errors.New("username or email already in use")
	ErrAdminNotFound    = errors.New("admin not found")
)

// AdminStore is the persistence AdminService needs.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	CreateFirstAdmin(ctx context.Context, admin *model.Admin) error
	GetAdmin(ctx context.Context, id int64) (*model.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	ListAdmins(ctx context.Context) ([]model.Admin, error)
	SetAdminActive(ctx context.Context, id int64, active bool) error
	UpdateAdminPassword(ctx context.Context, id int64, hash string) error
	DeleteAdmin(ctx context.Context, id int64) error
	DeactivateAdminSessions(ctx context.Context, adminID int64) (int64, error)
}

// NewAdmin holds the fields accepted when creating an admin account.
type NewAdmin struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	IsSuperAdmin bool   `json:"is_super_admin,omitempty"`
}

func (n NewAdmin) validate() error {
	if strings.TrimSpace(n.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	return validatePassword(n.Password)
}

func validatePassword(pw string) error {
	if len(pw) < password.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, password.MinLength)
	}
	return nil
}

// AdminService manages admin accounts.
type AdminService struct {
	store  AdminStore
	logger *slog.Logger
}

func NewAdminService(st AdminStore, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AdminService{store: st, logger: logger}
}

func (s *AdminService) build(n NewAdmin) (*model.Admin, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	hash, err := password.Hash(n.Password)
	if err != nil {
		return nil, err
	}
	return &model.Admin{
		Username:     strings.TrimSpace(n.Username),
		Email:        strings.TrimSpace(n.Email),
		FullName:     strings.TrimSpace(n.FullName),
		PasswordHash: hash,
		IsActive:     true,
		IsSuperAdmin: n.IsSuperAdmin,
	}, nil
}

// Create adds a new active admin account.
func (s *AdminService) Create(ctx context.Context, n NewAdmin) (*model.Admin, error) {
	admin, err := s.build(n)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	s.logger.Info("admin created", "admin_id", admin.ID, "username", admin.Username)
	return admin, nil
}

// Bootstrap creates the first admin account as a super admin. It fails with
// ErrBootstrapClosed once any admin exists.
func (s *AdminService) Bootstrap(ctx context.Context, n NewAdmin) (*model.Admin, error) {
	n.IsSuperAdmin = true
	admin, err := s.build(n)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateFirstAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAlreadyInitialized) {
			return nil, ErrBootstrapClosed
		}
		return nil, err
	}
	s.logger.Info("initial admin created", "admin_id", admin.ID, "username", admin.Username)
	return admin, nil
}

func (s *AdminService) List(ctx context.Context) ([]model.Admin, error) {
	return s.store.ListAdmins(ctx)
}

func (s *AdminService) Get(ctx context.Context, id int64) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	return admin, err
}

// GetByUsername looks up an admin regardless of status.
func (s *AdminService) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	return admin, err
}

// Deactivate disables targetID and ends its sessions. An admin cannot
// deactivate themselves.
func (s *AdminService) Deactivate(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfAction
	}
	if err := s.setActive(ctx, targetID, false); err != nil {
		return err
	}
	if _, err := s.store.DeactivateAdminSessions(ctx, targetID); err != nil {
		return fmt.Errorf("end sessions: %w", err)
	}
	s.logger.Info("admin deactivated", "admin_id", targetID, "by", actorID)
	return nil
}

// Activate re-enables targetID.
func (s *AdminService) Activate(ctx context.Context, actorID, targetID int64) error {
	if err := s.setActive(ctx, targetID, true); err != nil {
		return err
	}
	s.logger.Info("admin activated", "admin_id", targetID, "by", actorID)
	return nil
}

func (s *AdminService) setActive(ctx context.Context, id int64, active bool) error {
	err := s.store.SetAdminActive(ctx, id, active)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAdminNotFound
	}
	return err
}

// Delete removes targetID and all of its sessions. An admin cannot delete
// themselves.
func (s *AdminService) Delete(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfAction
	}
	err := s.store.DeleteAdmin(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAdminNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info("admin deleted", "admin_id", targetID, "by", actorID)
	return nil
}

// ChangePassword sets a new password for targetID. Changing one's own
// password requires the current one; an admin may reset another admin's
// password without it.
func (s *AdminService) ChangePassword(ctx context.Context, actorID, targetID int64, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if actorID == targetID && !password.Verify(oldPassword, target.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAdminPassword(ctx, targetID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("admin password changed", "admin_id", targetID, "by", actorID)
	return nil
}
