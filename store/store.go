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
	"github.com/danielhkuo/votertag/audit"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
)

// AuditRecorder appends tag change entries on the caller's transaction
type AuditRecorder interface {
	RecordTagChange(ctx context.Context, q db.Querier, actorID string, voterID int64, oldTag, newTag *models.Tag, ipHash string) (models.AuditEntry, error)
}

// Store is the voter directory and credential store.
//
// Every method that acts on behalf of a principal takes the actor's id,
// loads the actor inside the same transaction as the data access and
// evaluates the policy before touching any row.
type Store struct {
	db     *sql.DB
	driver string
	audit  AuditRecorder
	access *audit.Recorder
	now    func() time.Time
}

func New(conn *sql.DB, driver string) *Store {
	return &Store{
		db:     conn,
		driver: driver,
		audit:  audit.NewRecorder(driver),
		access: audit.NewRecorder(driver),
		now:    time.Now,
	}
}

// WithAuditRecorder replaces the audit recorder
func (s *Store) WithAuditRecorder(r AuditRecorder) *Store {
	s.audit = r
	return s
}

// WithClock overrides the time source used for timestamps and ages
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Driver() string { return s.driver }

func (s *Store) rebind(q string) string {
	return db.Rebind(s.driver, q)
}

// year is the calendar year ages are computed against
func (s *Store) year() int {
	return s.now().Year()
}

// inTx runs fn in a transaction, committing when it returns nil
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const principalColumns = `id, username, full_name, email, password_hash, role, home_area, is_active, must_change_password, last_login, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (models.Principal, error) {
	var (
		p         models.Principal
		homeArea  sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.PasswordHash, &p.Role, &homeArea, &p.IsActive, &p.MustChangePassword, &lastLogin, &p.CreatedAt)
	if err != nil {
		return models.Principal{}, err
	}
	p.HomeArea = homeArea.String
	if lastLogin.Valid {
		t := lastLogin.Time
		p.LastLogin = &t
	}
	return p, nil
}

// loadPrincipal reads the acting principal and holds its row stable for the
// rest of the transaction. A missing actor is an authentication failure.
func (s *Store) loadPrincipal(ctx context.Context, tx *sql.Tx, id string) (models.Principal, error) {
	row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+principalColumns+` FROM users WHERE id = ?`+db.ShareLock(s.driver)), id)
	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, fmt.Errorf("%w: principal not found", apperr.ErrAuthentication)
	}
	if err != nil {
		return models.Principal{}, fmt.Errorf("load principal: %w", err)
	}
	return p, nil
}
