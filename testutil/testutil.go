// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/session"
	"github.com/danielhkuo/votertag/store"
)

// TestPassword is the password of every principal created by CreateTestPrincipal
const TestPassword = "Passw0rd!"

// SetupTestDB creates a fresh SQLite database with the full schema in a
// temporary directory. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "votertag.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.DriverSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "votertag-test.db",
		DatabaseType: db.DriverSQLite,
		IPHashSalt:   "test-ip-salt",
	}
}

// CreateTestPrincipal inserts an active principal with TestPassword
func CreateTestPrincipal(t *testing.T, conn *sql.DB, username string, role models.Role, homeArea string) models.Principal {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	p, err := store.New(conn, db.DriverSQLite).InsertPrincipal(context.Background(), store.NewPrincipal{
		Username:     username,
		FullName:     username,
		Role:         role,
		HomeArea:     homeArea,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("Failed to create test principal: %v", err)
	}

	return p
}

// CreateTestVoter inserts a voter and returns its id
func CreateTestVoter(t *testing.T, conn *sql.DB, v models.Voter) int64 {
	t.Helper()

	if _, err := store.New(conn, db.DriverSQLite).ImportVoters(context.Background(), []models.Voter{v}); err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	var id int64
	if err := conn.QueryRow(`SELECT MAX(id) FROM voters`).Scan(&id); err != nil {
		t.Fatalf("Failed to read voter id: %v", err)
	}

	return id
}

// Login opens a session for username and returns its bearer token
func Login(t *testing.T, conn *sql.DB, username string) string {
	t.Helper()

	res, err := session.NewManager(store.New(conn, db.DriverSQLite)).Login(context.Background(), username, TestPassword)
	if err != nil {
		t.Fatalf("Failed to log in %s: %v", username, err)
	}

	return res.Token
}

// Bearer returns request headers carrying token
func Bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
