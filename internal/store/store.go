package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mapgame/mapgame/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists admins, admin sessions, map objects and player interactions.
// It runs on SQLite by default and on PostgreSQL when configured.
type Store struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens the SQLite store in dataDir. Pass empty string for in-memory.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "mapgame.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return Open(DriverSQLite, dsn, opts...)
}

// Open connects to the database identified by driver and dsn and applies the
// schema migrations for that dialect.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite, "":
		driver, sqlDriver = DriverSQLite, "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

		// Enable foreign keys (off by default in SQLite).
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Now returns the store's current time in UTC, truncated to the microsecond
// precision both dialects can round-trip.
func (s *Store) Now() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// insertReturningID runs a named INSERT ending in "RETURNING id" and returns
// the new row's id. pgx does not implement LastInsertId.
func insertReturningID(ctx context.Context, q sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	named, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(named), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func rowsAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

const insertAdminSQL = `INSERT INTO admins
	(username, email, full_name, password_hash, is_active, is_super_admin, created_at, updated_at)
	VALUES
	(:username, :email, :full_name, :password_hash, :is_active, :is_super_admin, :created_at, :updated_at)
	RETURNING id`

// CreateAdmin inserts a new admin account. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert. A duplicate username or
// email yields ErrConflict.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := s.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	id, err := insertReturningID(ctx, s.db, insertAdminSQL, admin)
	if err != nil {
		return classify("insert admin", err)
	}
	admin.ID = id
	return nil
}

// CreateFirstAdmin inserts admin only when the admins table is empty. The
// check and the insert share one transaction so two concurrent bootstrap
// requests cannot both succeed.
func (s *Store) CreateFirstAdmin(ctx context.Context, admin *model.Admin) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.driver == DriverPostgres {
		if _, err := tx.ExecContext(ctx, "LOCK TABLE admins IN EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("lock admins: %w", err)
		}
	}

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return ErrAlreadyInitialized
	}

	now := s.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	id, err := insertReturningID(ctx, tx, insertAdminSQL, admin)
	if err != nil {
		return classify("insert admin", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdmin returns an admin by ID regardless of status.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, s.db.Rebind("SELECT * FROM admins WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// GetAdminByUsername returns an admin by username regardless of status.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.GetContext(ctx, &admin, s.db.Rebind("SELECT * FROM admins WHERE username = ?"), username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// GetActiveAdminByUsername returns the active admin with the given username.
// Inactive accounts are reported as ErrNotFound.
func (s *Store) GetActiveAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE username = ? AND is_active = ?")
	if err := s.db.GetContext(ctx, &admin, q, username, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active admin: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by username.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins := []model.Admin{}
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. This is used
// for first-run detection to trigger the initial setup flow.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	now := s.Now()
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?"), now, now, id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	return rowsAffected(result, "update admin last login")
}

// SetAdminActive activates or deactivates an admin account.
func (s *Store) SetAdminActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET is_active = ?, updated_at = ? WHERE id = ?"), active, s.Now(), id)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	return rowsAffected(result, "set admin active")
}

// UpdateAdminPassword replaces the stored password hash for an admin.
func (s *Store) UpdateAdminPassword(ctx context.Context, id int64, hash string) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?"), hash, s.Now(), id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return rowsAffected(result, "update admin password")
}

// DeleteAdmin removes an admin together with all of its sessions. Sessions
// are deleted first, in the same transaction, so no orphaned session rows
// can outlive the account.
func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM admin_sessions WHERE admin_id = ?"), id); err != nil {
		return fmt.Errorf("delete admin sessions: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM admins WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if err := rowsAffected(result, "delete admin"); err != nil {
		return err
	}
	return tx.Commit()
}
