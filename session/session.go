// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/models"
)

// TTL is the fixed lifetime of a session. Sessions are never extended.
const TTL = 72 * time.Hour

var (
	ErrBadCredentials  = fmt.Errorf("%w: invalid username or password", apperr.ErrAuthentication)
	ErrSessionNotFound = fmt.Errorf("%w: session not found", apperr.ErrNotFound)
	ErrExpired         = fmt.Errorf("%w: please log in again", apperr.ErrSessionExpired)
	ErrAccountDisabled = fmt.Errorf("%w: account is disabled", apperr.ErrAuthentication)
)

// Store is the persistence the manager needs
type Store interface {
	PrincipalByUsername(ctx context.Context, username string) (models.Principal, error)
	PrincipalByID(ctx context.Context, id string) (models.Principal, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	CreateSession(ctx context.Context, tokenHash string, sess models.Session) error
	SessionByHash(ctx context.Context, tokenHash string) (models.Session, error)
	RevokeSession(ctx context.Context, tokenHash string, at time.Time) error
	RevokeUserSessions(ctx context.Context, userID, keepHash string) error
}

// Manager issues, validates and revokes bearer sessions
type Manager struct {
	store   Store
	now     func() time.Time
	metrics *metrics.Metrics
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// WithClock overrides the time source
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.metrics = mt
	return m
}

// LoginResult is what a successful login hands back to the caller
type LoginResult struct {
	Token     string
	Session   models.Session
	Principal models.Principal
}

// Response renders the result for the wire
func (r LoginResult) Response() models.LoginResponse {
	return models.LoginResponse{
		AccessToken:        r.Token,
		TokenType:          "bearer",
		IssuedAt:           r.Session.IssuedAt,
		ExpiresAt:          r.Session.ExpiresAt,
		MustChangePassword: r.Principal.MustChangePassword,
		User:               r.Principal.Summary(),
	}
}

// Login verifies credentials and opens a session. Unknown handles,
// disabled principals and wrong secrets all fail the same way.
func (m *Manager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		m.metrics.IncLogin(false)
		return LoginResult{}, ErrBadCredentials
	}

	p, err := m.store.PrincipalByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		m.metrics.IncLogin(false)
		return LoginResult{}, ErrBadCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	if !auth.VerifyPassword(password, p.PasswordHash) || !p.IsActive {
		m.metrics.IncLogin(false)
		slog.Info("login failed", "username", username)
		return LoginResult{}, ErrBadCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return LoginResult{}, err
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return LoginResult{}, err
	}

	now := m.now().UTC()
	sess := models.Session{UserID: p.ID, IssuedAt: now, ExpiresAt: now.Add(TTL)}
	if err := m.store.CreateSession(ctx, hash, sess); err != nil {
		return LoginResult{}, err
	}
	if err := m.store.RecordLogin(ctx, p.ID, now); err != nil {
		slog.Error("failed to record login", "user_id", p.ID, "error", err)
	}

	t := now
	p.LastLogin = &t
	m.metrics.IncLogin(true)
	slog.Info("login succeeded", "user_id", p.ID, "role", p.Role)

	return LoginResult{Token: token, Session: sess, Principal: p}, nil
}

// Validate resolves a bearer token to its principal.
//
// A session at or past its expiry is reported as apperr.ErrSessionExpired
// on every check, and is revoked the first time that is detected.
func (m *Manager) Validate(ctx context.Context, token string) (models.Principal, error) {
	hash, err := auth.HashToken(token)
	if err != nil {
		return models.Principal{}, ErrSessionNotFound
	}

	sess, err := m.store.SessionByHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Principal{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Principal{}, err
	}

	// Past expiry stays expired, revoked or not
	now := m.now()
	if !now.Before(sess.ExpiresAt) {
		if sess.RevokedAt == nil {
			if err := m.store.RevokeSession(ctx, hash, now); err != nil {
				slog.Error("failed to revoke expired session", "user_id", sess.UserID, "error", err)
			}
			m.metrics.IncSessionExpired()
		}
		return models.Principal{}, ErrExpired
	}
	if sess.RevokedAt != nil {
		return models.Principal{}, ErrSessionNotFound
	}

	p, err := m.store.PrincipalByID(ctx, sess.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Principal{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Principal{}, err
	}
	if !p.IsActive {
		return models.Principal{}, ErrAccountDisabled
	}
	return p, nil
}

// Logout revokes the session. Unknown and already revoked tokens are not
// an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	hash, err := auth.HashToken(token)
	if err != nil {
		return nil
	}
	return m.store.RevokeSession(ctx, hash, m.now())
}

// RevokeOthers revokes every session of userID except the one for keepToken
func (m *Manager) RevokeOthers(ctx context.Context, userID, keepToken string) error {
	keep, err := auth.HashToken(keepToken)
	if err != nil {
		keep = ""
	}
	return m.store.RevokeUserSessions(ctx, userID, keep)
}
