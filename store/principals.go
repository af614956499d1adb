// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/audit"
	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/policy"
)

var (
	ErrPrincipalNotFound = fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	ErrUsernameTaken     = fmt.Errorf("%w: username already exists", apperr.ErrConflict)
	ErrWrongPassword     = fmt.Errorf("%w: current password is incorrect", apperr.ErrValidation)
)

// NewPrincipal is a principal about to be inserted
type NewPrincipal struct {
	Username           string
	FullName           string
	Email              string
	Role               models.Role
	HomeArea           string
	PasswordHash       string
	MustChangePassword bool
}

// Validate checks the role and the home area rule: a home area is required
// for every role except super_admin, which must not have one.
func (np NewPrincipal) Validate() error {
	if strings.TrimSpace(np.Username) == "" {
		return fmt.Errorf("%w: username is required", apperr.ErrValidation)
	}
	if !np.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, np.Role)
	}
	if np.Role == models.RoleSuperAdmin && np.HomeArea != "" {
		return fmt.Errorf("%w: super_admin must not have a home area", apperr.ErrValidation)
	}
	if np.Role != models.RoleSuperAdmin && strings.TrimSpace(np.HomeArea) == "" {
		return fmt.Errorf("%w: home_area is required for role %s", apperr.ErrValidation, np.Role)
	}
	if np.PasswordHash == "" {
		return fmt.Errorf("%w: password is required", apperr.ErrValidation)
	}
	return nil
}

// InsertPrincipal creates a principal without an acting principal. Used by
// the command line tools and by CreatePrincipal.
func (s *Store) InsertPrincipal(ctx context.Context, np NewPrincipal) (models.Principal, error) {
	var p models.Principal
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.insertPrincipal(ctx, tx, np)
		return err
	})
	if err != nil {
		return models.Principal{}, err
	}
	return p, nil
}

func (s *Store) insertPrincipal(ctx context.Context, tx *sql.Tx, np NewPrincipal) (models.Principal, error) {
	np.Username = strings.TrimSpace(np.Username)
	np.HomeArea = strings.TrimSpace(np.HomeArea)
	if err := np.Validate(); err != nil {
		return models.Principal{}, err
	}

	var exists int
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), np.Username).Scan(&exists)
	if err != nil {
		return models.Principal{}, fmt.Errorf("check username: %w", err)
	}
	if exists > 0 {
		return models.Principal{}, ErrUsernameTaken
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Principal{}, fmt.Errorf("generate user id: %w", err)
	}

	var homeArea *string
	if np.HomeArea != "" {
		homeArea = &np.HomeArea
	}
	now := s.now().UTC()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, username, full_name, email, password_hash, role, home_area, is_active, must_change_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, np.Username, np.FullName, np.Email, np.PasswordHash, string(np.Role), homeArea, true, np.MustChangePassword, now, now)
	if err != nil {
		return models.Principal{}, fmt.Errorf("insert user: %w", err)
	}

	return models.Principal{
		ID:                 id,
		Username:           np.Username,
		FullName:           np.FullName,
		Email:              np.Email,
		Role:               np.Role,
		HomeArea:           np.HomeArea,
		IsActive:           true,
		MustChangePassword: np.MustChangePassword,
		CreatedAt:          now,
		PasswordHash:       np.PasswordHash,
	}, nil
}

// CreatePrincipal creates a principal on behalf of an administrator
func (s *Store) CreatePrincipal(ctx context.Context, actorID string, req models.CreatePrincipalRequest) (models.Principal, error) {
	if err := auth.CheckPasswordStrength(req.Password); err != nil {
		return models.Principal{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.Principal{}, err
	}

	var p models.Principal
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpInsert, models.Principal{}); err != nil {
			return err
		}
		p, err = s.insertPrincipal(ctx, tx, NewPrincipal{
			Username:           req.Username,
			FullName:           req.FullName,
			Email:              req.Email,
			Role:               req.Role,
			HomeArea:           req.HomeArea,
			PasswordHash:       hash,
			MustChangePassword: req.MustChangePassword,
		})
		return err
	})
	if err != nil {
		return models.Principal{}, err
	}
	return p, nil
}

// PrincipalByUsername looks a principal up by handle without an acting
// principal. Used by login.
func (s *Store) PrincipalByUsername(ctx context.Context, username string) (models.Principal, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+principalColumns+` FROM users WHERE username = ?`), username)
	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, ErrPrincipalNotFound
	}
	if err != nil {
		return models.Principal{}, fmt.Errorf("load user: %w", err)
	}
	return p, nil
}

// PrincipalByID looks a principal up by id without an acting principal.
// Used by session validation.
func (s *Store) PrincipalByID(ctx context.Context, id string) (models.Principal, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+principalColumns+` FROM users WHERE id = ?`), id)
	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, ErrPrincipalNotFound
	}
	if err != nil {
		return models.Principal{}, fmt.Errorf("load user: %w", err)
	}
	return p, nil
}

// GetPrincipal returns one principal as seen by the actor
func (s *Store) GetPrincipal(ctx context.Context, actorID, id string) (models.Principal, error) {
	var p models.Principal
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpSelect, models.Principal{ID: id}); err != nil {
			return err
		}
		p, err = scanPrincipal(tx.QueryRowContext(ctx, s.rebind(`SELECT `+principalColumns+` FROM users WHERE id = ?`), id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPrincipalNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	return p, nil
}

// ListPrincipals lists the principals the actor may see ordered by
// username. Only super_admin sees other principals.
func (s *Store) ListPrincipals(ctx context.Context, actorID string) ([]models.Principal, error) {
	principals := []models.Principal{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpSelect, actor); err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpSelect, models.Principal{}); err != nil {
			principals = append(principals, actor)
			return nil
		}

		rows, err := tx.QueryContext(ctx, `SELECT `+principalColumns+` FROM users ORDER BY username`)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPrincipal(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			principals = append(principals, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return principals, nil
}

// CountPrincipals returns the number of principals
func (s *Store) CountPrincipals(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SetPrincipalActive enables or disables a principal. Principals are never
// deleted. Disabling revokes the principal's open sessions.
func (s *Store) SetPrincipalActive(ctx context.Context, actorID, id string, active bool) (models.Principal, error) {
	var p models.Principal
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.Require(actor, policy.CapManageUsers); err != nil {
			return err
		}
		if actor.ID == id && !active {
			return fmt.Errorf("%w: cannot deactivate your own account", apperr.ErrValidation)
		}

		now := s.now().UTC()
		res, err := tx.ExecContext(ctx, s.rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`), active, now, id)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPrincipalNotFound
		}
		if !active {
			if err := s.revokeSessions(ctx, tx, id, ""); err != nil {
				return err
			}
		}

		p, err = scanPrincipal(tx.QueryRowContext(ctx, s.rebind(`SELECT `+principalColumns+` FROM users WHERE id = ?`), id))
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	return p, nil
}

// ChangePassword replaces the actor's own password after verifying the
// current one, and clears must_change_password.
func (s *Store) ChangePassword(ctx context.Context, actorID string, req models.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: new password and confirmation do not match", apperr.ErrValidation)
	}
	if req.NewPassword == req.CurrentPassword {
		return fmt.Errorf("%w: new password must differ from the current password", apperr.ErrValidation)
	}
	if err := auth.CheckPasswordStrength(req.NewPassword); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpUpdate, actor); err != nil {
			return err
		}
		if !auth.VerifyPassword(req.CurrentPassword, actor.PasswordHash) {
			return ErrWrongPassword
		}
		return s.setPasswordHash(ctx, tx, actor.ID, req.NewPassword, false)
	})
}

// ResetPassword sets another principal's password on behalf of an
// administrator. The principal must change it at next login and loses
// every open session.
func (s *Store) ResetPassword(ctx context.Context, actorID, id, newPassword string) error {
	if err := auth.CheckPasswordStrength(newPassword); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.Require(actor, policy.CapManageUsers); err != nil {
			return err
		}
		if err := s.setPasswordHash(ctx, tx, id, newPassword, true); err != nil {
			return err
		}
		return s.revokeSessions(ctx, tx, id, "")
	})
}

// SetPassword sets a password by username without an acting principal.
// Used by the passwd command.
func (s *Store) SetPassword(ctx context.Context, username, password string, mustChange bool) error {
	if err := auth.CheckPasswordStrength(password); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM users WHERE username = ?`), username).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPrincipalNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if err := s.setPasswordHash(ctx, tx, id, password, mustChange); err != nil {
			return err
		}
		return s.revokeSessions(ctx, tx, id, "")
	})
}

func (s *Store) setPasswordHash(ctx context.Context, tx *sql.Tx, id, password string, mustChange bool) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE users SET password_hash = ?, must_change_password = ?, updated_at = ? WHERE id = ?
	`), hash, mustChange, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

// RecordLogin stamps the principal's last login time
func (s *Store) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET last_login = ? WHERE id = ?`), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// AuditLog pages the full audit trail. The actor needs view_audit.
func (s *Store) AuditLog(ctx context.Context, actorID string, opts audit.ListOptions) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.Require(actor, policy.CapViewAudit); err != nil {
			return err
		}
		entries, err = audit.List(ctx, tx, s.driver, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AccessLog pages the log of reads. The actor needs view_audit.
func (s *Store) AccessLog(ctx context.Context, actorID string, opts audit.ListOptions) ([]models.AccessEntry, error) {
	var entries []models.AccessEntry
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.Require(actor, policy.CapViewAudit); err != nil {
			return err
		}
		entries, err = audit.ListAccess(ctx, tx, s.driver, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// RecordAccess appends a read of voter data by actorID to the access log
func (s *Store) RecordAccess(ctx context.Context, actorID, action string, voterID *int64, ipHash string) error {
	_, err := s.access.RecordAccess(ctx, s.db, actorID, action, voterID, ipHash)
	return err
}

// MyActivity pages the actor's own audit entries
func (s *Store) MyActivity(ctx context.Context, actorID string, page int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		actor, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizePrincipal(actor, policy.OpSelect, actor); err != nil {
			return err
		}
		entries, err = audit.List(ctx, tx, s.driver, audit.ListOptions{ActorID: actor.ID, Page: page})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
