// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"path/filepath"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		query  string
		want   string
	}{
		{"sqlite untouched", DriverSQLite, "SELECT * FROM voters WHERE id = ?", "SELECT * FROM voters WHERE id = ?"},
		{"postgres numbered", DriverPostgres, "UPDATE voters SET tag = ? WHERE id = ?", "UPDATE voters SET tag = $1 WHERE id = $2"},
		{"quoted question mark kept", DriverPostgres, "SELECT '?' , name FROM voters WHERE id = ?", "SELECT '?' , name FROM voters WHERE id = $1"},
		{"no placeholders", DriverPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.driver, tt.query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShareLock(t *testing.T) {
	if got := ShareLock(DriverSQLite); got != "" {
		t.Errorf("ShareLock(sqlite) = %q, want empty", got)
	}
	if got := ShareLock(DriverPostgres); got != " FOR SHARE" {
		t.Errorf("ShareLock(postgres) = %q, want FOR SHARE", got)
	}
}

func TestOpenAndCreateSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn, DriverSQLite); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	// Idempotent
	if err := CreateSchema(conn, DriverSQLite); err != nil {
		t.Fatalf("second CreateSchema() failed: %v", err)
	}

	for _, table := range []string{"voters", "users", "sessions", "audit_log"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	var fk int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys failed: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestSchemaRejectsAdminWithHomeArea(t *testing.T) {
	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer conn.Close()
	if err := CreateSchema(conn, DriverSQLite); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}

	_, err = conn.Exec(`INSERT INTO users (id, username, password_hash, role, home_area) VALUES ('u1', 'boss', 'x', 'super_admin', 'Limbahau')`)
	if err == nil {
		t.Error("Expected CHECK violation for super_admin with home_area")
	}

	_, err = conn.Exec(`INSERT INTO users (id, username, password_hash, role) VALUES ('u2', 'cand', 'x', 'candidate')`)
	if err == nil {
		t.Error("Expected CHECK violation for candidate without home_area")
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}
