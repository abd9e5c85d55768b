package store

import (
	"fmt"
	"strings"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_super_admin INTEGER NOT NULL DEFAULT 0,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	// Email is optional; only non-empty values must be unique.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_email ON admins(email) WHERE email <> ''`,

	`CREATE TABLE IF NOT EXISTS admin_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		admin_id INTEGER NOT NULL REFERENCES admins(id),
		session_token TEXT UNIQUE NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_activity_at DATETIME NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_admin_sessions_admin_id ON admin_sessions(admin_id)`,
	`CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires_at ON admin_sessions(expires_at)`,

	`CREATE TABLE IF NOT EXISTS map_objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		era TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		first_flight DATETIME,
		status TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		z REAL NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		model_url TEXT NOT NULL DEFAULT '',
		video_360_url TEXT NOT NULL DEFAULT '',
		is_interactive INTEGER NOT NULL DEFAULT 1,
		is_discoverable INTEGER NOT NULL DEFAULT 1,
		is_unlocked INTEGER NOT NULL DEFAULT 0,
		experience_value INTEGER NOT NULL DEFAULT 0,
		difficulty_level INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_map_objects_type ON map_objects(type)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT NOT NULL,
		map_object_id INTEGER NOT NULL REFERENCES map_objects(id) ON DELETE CASCADE,
		interaction_type TEXT NOT NULL,
		interaction_data TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		was_successful INTEGER NOT NULL DEFAULT 1,
		timestamp DATETIME NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_interactions_map_object_id ON interactions(map_object_id)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_super_admin BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_email ON admins(email) WHERE email <> ''`,

	`CREATE TABLE IF NOT EXISTS admin_sessions (
		id BIGSERIAL PRIMARY KEY,
		admin_id BIGINT NOT NULL REFERENCES admins(id),
		session_token TEXT UNIQUE NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_activity_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_admin_sessions_admin_id ON admin_sessions(admin_id)`,
	`CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires_at ON admin_sessions(expires_at)`,

	`CREATE TABLE IF NOT EXISTS map_objects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		era TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		first_flight TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT '',
		x DOUBLE PRECISION NOT NULL DEFAULT 0,
		y DOUBLE PRECISION NOT NULL DEFAULT 0,
		z DOUBLE PRECISION NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		model_url TEXT NOT NULL DEFAULT '',
		video_360_url TEXT NOT NULL DEFAULT '',
		is_interactive BOOLEAN NOT NULL DEFAULT TRUE,
		is_discoverable BOOLEAN NOT NULL DEFAULT TRUE,
		is_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		experience_value INTEGER NOT NULL DEFAULT 0,
		difficulty_level INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_map_objects_type ON map_objects(type)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGSERIAL PRIMARY KEY,
		player_id TEXT NOT NULL,
		map_object_id BIGINT NOT NULL REFERENCES map_objects(id) ON DELETE CASCADE,
		interaction_type TEXT NOT NULL,
		interaction_data TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		was_successful BOOLEAN NOT NULL DEFAULT TRUE,
		timestamp TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_interactions_map_object_id ON interactions(map_object_id)`,
}

func (s *Store) migrate() error {
	migrations := sqliteMigrations
	if s.driver == DriverPostgres {
		migrations = postgresMigrations
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN fails if the column already exists;
			// treat it as a no-op so migrations stay idempotent.
			if strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
