// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, driver string) error {
	var voterTable string
	switch driver {
	case DriverSQLite:
		voterTable = sqliteVoterTable
	case DriverPostgres:
		voterTable = postgresVoterTable
	default:
		return fmt.Errorf("unsupported database type %q", driver)
	}

	if _, err := db.Exec(voterTable + schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const sqliteVoterTable = `
CREATE TABLE IF NOT EXISTS voters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
` + voterColumns

const postgresVoterTable = `
CREATE TABLE IF NOT EXISTS voters (
    id BIGSERIAL PRIMARY KEY,
` + voterColumns

// Shared by both dialects; CURRENT_TIMESTAMP rather than NOW() so SQLite accepts it
const voterColumns = `
    seq INTEGER NOT NULL DEFAULT 0,
    identity_no TEXT NOT NULL,
    alt_identity_no TEXT,
    name TEXT NOT NULL,
    name_folded TEXT NOT NULL,
    birth_year INTEGER NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('L', 'P')),
    area_code TEXT NOT NULL DEFAULT '',
    area TEXT NOT NULL DEFAULT '',
    district_code TEXT NOT NULL DEFAULT '',
    district TEXT NOT NULL DEFAULT '',
    home_area TEXT NOT NULL DEFAULT '',
    tag TEXT CHECK (tag IN ('Yes', 'Unsure', 'No')),
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schema = `
CREATE INDEX IF NOT EXISTS idx_voters_home_area ON voters(home_area);
CREATE INDEX IF NOT EXISTS idx_voters_area ON voters(home_area, area);
CREATE INDEX IF NOT EXISTS idx_voters_tag ON voters(home_area, tag);

-- Principals
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('super_admin', 'candidate', 'candidate_assistant', 'super_user', 'pdm')),
    home_area TEXT,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
    last_login TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((role = 'super_admin' AND home_area IS NULL) OR (role <> 'super_admin' AND home_area IS NOT NULL AND home_area <> ''))
);

-- Sessions (id is the SHA-256 of the bearer token)
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    issued_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    revoked_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

-- Audit log (append only)
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    voter_id BIGINT NOT NULL REFERENCES voters(id),
    field TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    ip_hash TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_user_id ON audit_log(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_voter_id ON audit_log(voter_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);

-- Reads of voter data, kept apart from tag changes
CREATE TABLE IF NOT EXISTS access_log (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    action TEXT NOT NULL CHECK (action IN ('view', 'view_stats', 'export')),
    voter_id BIGINT REFERENCES voters(id),
    ip_hash TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_log_user_id ON access_log(user_id);
CREATE INDEX IF NOT EXISTS idx_access_log_voter_id ON access_log(voter_id);
`
