// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/store"
)

const password = "Passw0rd!"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T) (*Manager, *store.Store, *clock, *metrics.Metrics, models.Principal) {
	t.Helper()

	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.CreateSchema(conn, db.DriverSQLite))

	clk := newClock()
	s := store.New(conn, db.DriverSQLite).WithClock(clk.Now)

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	p, err := s.InsertPrincipal(context.Background(), store.NewPrincipal{
		Username: "pdm1_lb", Role: models.RolePDM, HomeArea: "Limbahau", PasswordHash: hash,
	})
	require.NoError(t, err)
	_, err = s.InsertPrincipal(context.Background(), store.NewPrincipal{
		Username: "admin", Role: models.RoleSuperAdmin, PasswordHash: hash,
	})
	require.NoError(t, err)

	m := metrics.New()
	return NewManager(s).WithClock(clk.Now).WithMetrics(m), s, clk, m, p
}

func TestLogin(t *testing.T) {
	mgr, s, clk, m, p := setup(t)
	ctx := context.Background()

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)
	assert.Len(t, res.Token, 43)
	assert.True(t, res.Session.IssuedAt.Equal(clk.Now()))
	assert.Equal(t, TTL, res.Session.ExpiresAt.Sub(res.Session.IssuedAt))
	assert.Equal(t, p.ID, res.Principal.ID)

	resp := res.Response()
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "Limbahau", resp.User.HomeArea)

	stored, err := s.PrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(clk.Now()))

	got, err := mgr.Validate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, uint64(1), m.LoginSuccesses.Load())
}

func TestLoginFailuresLookAlike(t *testing.T) {
	mgr, s, _, m, _ := setup(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "pdm1_lb", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = mgr.Login(ctx, "ghost", password)
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = mgr.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)

	admin, err := s.PrincipalByUsername(ctx, "admin")
	require.NoError(t, err)
	target, err := s.PrincipalByUsername(ctx, "pdm1_lb")
	require.NoError(t, err)
	_, err = s.SetPrincipalActive(ctx, admin.ID, target.ID, false)
	require.NoError(t, err)

	_, err = mgr.Login(ctx, "pdm1_lb", password)
	assert.ErrorIs(t, err, ErrBadCredentials, "disabled account fails like a wrong password")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.Equal(t, uint64(4), m.LoginFailures.Load())
}

func TestSessionExpiry(t *testing.T) {
	mgr, _, clk, m, _ := setup(t)
	ctx := context.Background()
	start := clk.Now()

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	clk.Set(start.Add(TTL - time.Second))
	_, err = mgr.Validate(ctx, res.Token)
	require.NoError(t, err)

	// Three days and one minute later
	clk.Set(start.Add(3*24*time.Hour + time.Minute))
	_, err = mgr.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.Equal(t, uint64(1), m.ExpiredSessions.Load())

	// Later checks keep reporting expiry, counted once
	for i := 0; i < 2; i++ {
		_, err = mgr.Validate(ctx, res.Token)
		assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	}
	assert.Equal(t, uint64(1), m.ExpiredSessions.Load())

	// Revoked on detection, so it stays invalid even if the clock goes back
	clk.Set(start)
	_, err = mgr.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionExpiryBoundary(t *testing.T) {
	mgr, _, clk, _, _ := setup(t)
	ctx := context.Background()
	start := clk.Now()

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	clk.Set(start.Add(TTL))
	_, err = mgr.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired, "expiry is inclusive of issued_at + 72h")
}

func TestValidityIsMonotonic(t *testing.T) {
	mgr, _, clk, _, _ := setup(t)
	ctx := context.Background()
	start := clk.Now()

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	expired := false
	for h := 0; h <= 80; h += 4 {
		clk.Set(start.Add(time.Duration(h) * time.Hour))
		_, err := mgr.Validate(ctx, res.Token)
		if expired {
			assert.ErrorIs(t, err, apperr.ErrSessionExpired, "hour %d: a session never becomes valid again", h)
			continue
		}
		if err != nil {
			expired = true
			assert.GreaterOrEqual(t, h, 72)
		}
	}
	assert.True(t, expired)
}

func TestValidateRejects(t *testing.T) {
	mgr, s, _, _, p := setup(t)
	ctx := context.Background()

	_, err := mgr.Validate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = mgr.Validate(ctx, "not a token")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = mgr.Validate(ctx, "unknown-token")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	// Owner disabled after login
	_, err = s.DB().Exec(`UPDATE users SET is_active = FALSE WHERE id = ?`, p.ID)
	require.NoError(t, err)
	_, err = mgr.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestLogout(t *testing.T) {
	mgr, _, _, _, _ := setup(t)
	ctx := context.Background()

	res, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	require.NoError(t, mgr.Logout(ctx, res.Token))
	require.NoError(t, mgr.Logout(ctx, res.Token), "logout is idempotent")
	require.NoError(t, mgr.Logout(ctx, ""))

	_, err = mgr.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRevokeOthers(t *testing.T) {
	mgr, _, _, _, p := setup(t)
	ctx := context.Background()

	first, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)
	second, err := mgr.Login(ctx, "pdm1_lb", password)
	require.NoError(t, err)

	require.NoError(t, mgr.RevokeOthers(ctx, p.ID, second.Token))

	_, err = mgr.Validate(ctx, first.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = mgr.Validate(ctx, second.Token)
	assert.NoError(t, err)
}
