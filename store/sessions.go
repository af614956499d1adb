// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
)

var ErrSessionNotFound = fmt.Errorf("%w: session not found", apperr.ErrNotFound)

// CreateSession stores a session under the hash of its bearer token
func (s *Store) CreateSession(ctx context.Context, tokenHash string, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sessions (id, user_id, issued_at, expires_at)
		VALUES (?, ?, ?, ?)
	`), tokenHash, sess.UserID, sess.IssuedAt.UTC(), sess.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionByHash loads a session, revoked or not
func (s *Store) SessionByHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var (
		sess    models.Session
		revoked sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT user_id, issued_at, expires_at, revoked_at FROM sessions WHERE id = ?
	`), tokenHash).Scan(&sess.UserID, &sess.IssuedAt, &sess.ExpiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

// RevokeSession marks one session revoked. Revoking twice is not an error.
func (s *Store) RevokeSession(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
	`), at.UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions revokes every open session of userID except keepHash
func (s *Store) RevokeUserSessions(ctx context.Context, userID, keepHash string) error {
	return s.revokeSessions(ctx, s.db, userID, keepHash)
}

func (s *Store) revokeSessions(ctx context.Context, q db.Querier, userID, keepHash string) error {
	_, err := q.ExecContext(ctx, s.rebind(`
		UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND id <> ? AND revoked_at IS NULL
	`), s.now().UTC(), userID, keepHash)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
