// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
)

// PageSize is the number of audit entries per page
const PageSize = 50

// MaxPage is the highest page whose offset fits in an int
const MaxPage = math.MaxInt / PageSize

var ErrNoChange = errors.New("audit: old and new values are equal")

// Recorder appends audit entries inside the caller's transaction
type Recorder struct {
	driver string
	now    func() time.Time
}

func NewRecorder(driver string) *Recorder {
	return &Recorder{driver: driver, now: time.Now}
}

// WithClock overrides the timestamp source
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordTagChange appends one entry for a tag change on voterID.
// q must be the transaction that performed the change so both commit or
// roll back together.
func (r *Recorder) RecordTagChange(ctx context.Context, q db.Querier, actorID string, voterID int64, oldTag, newTag *models.Tag, ipHash string) (models.AuditEntry, error) {
	if models.SameTag(oldTag, newTag) {
		return models.AuditEntry{}, ErrNoChange
	}

	// v7 ids sort by creation time
	id, err := uuid.NewV7()
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("record audit entry: %w", err)
	}

	entry := models.AuditEntry{
		ID:        id.String(),
		UserID:    actorID,
		VoterID:   voterID,
		Field:     models.FieldTag,
		OldValue:  models.TagString(oldTag),
		NewValue:  models.TagString(newTag),
		IPHash:    ipHash,
		CreatedAt: r.now().UTC(),
	}

	_, err = q.ExecContext(ctx, db.Rebind(r.driver, `
		INSERT INTO audit_log (id, user_id, voter_id, field, old_value, new_value, ip_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.UserID, entry.VoterID, entry.Field, entry.OldValue, entry.NewValue, entry.IPHash, entry.CreatedAt)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("record audit entry: %w", err)
	}

	return entry, nil
}

// ListOptions selects a page of the audit trail
type ListOptions struct {
	ActorID string // empty lists every actor
	VoterID int64  // zero lists every voter
	Page    int
}

// List returns entries newest first
func List(ctx context.Context, q db.Querier, driver string, opts ListOptions) ([]models.AuditEntry, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return nil, fmt.Errorf("%w: page must be at most %d", apperr.ErrValidation, MaxPage)
	}

	query := `
		SELECT a.id, a.user_id, u.username, a.voter_id, a.field, a.old_value, a.new_value, a.ip_hash, a.created_at
		FROM audit_log a
		JOIN users u ON u.id = a.user_id
		WHERE 1 = 1`
	var args []any
	if opts.ActorID != "" {
		query += " AND a.user_id = ?"
		args = append(args, opts.ActorID)
	}
	if opts.VoterID != 0 {
		query += " AND a.voter_id = ?"
		args = append(args, opts.VoterID)
	}
	query += " ORDER BY a.id DESC LIMIT ? OFFSET ?"
	args = append(args, PageSize, (page-1)*PageSize)

	rows, err := q.QueryContext(ctx, db.Rebind(driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.VoterID, &e.Field, &e.OldValue, &e.NewValue, &e.IPHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
