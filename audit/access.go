// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
)

// RecordAccess appends one read to the access log. voterID is nil for
// reads that are not about a single voter.
func (r *Recorder) RecordAccess(ctx context.Context, q db.Querier, actorID, action string, voterID *int64, ipHash string) (models.AccessEntry, error) {
	if !models.ValidAccessAction(action) {
		return models.AccessEntry{}, fmt.Errorf("%w: unknown access action %q", apperr.ErrValidation, action)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.AccessEntry{}, fmt.Errorf("record access: %w", err)
	}

	entry := models.AccessEntry{
		ID:        id.String(),
		UserID:    actorID,
		Action:    action,
		VoterID:   voterID,
		IPHash:    ipHash,
		CreatedAt: r.now().UTC(),
	}

	_, err = q.ExecContext(ctx, db.Rebind(r.driver, `
		INSERT INTO access_log (id, user_id, action, voter_id, ip_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.UserID, entry.Action, entry.VoterID, entry.IPHash, entry.CreatedAt)
	if err != nil {
		return models.AccessEntry{}, fmt.Errorf("record access: %w", err)
	}

	return entry, nil
}

// ListAccess returns access log entries newest first
func ListAccess(ctx context.Context, q db.Querier, driver string, opts ListOptions) ([]models.AccessEntry, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return nil, fmt.Errorf("%w: page must be at most %d", apperr.ErrValidation, MaxPage)
	}

	query := `
		SELECT a.id, a.user_id, u.username, a.action, a.voter_id, a.ip_hash, a.created_at
		FROM access_log a
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
		return nil, fmt.Errorf("list access entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AccessEntry{}
	for rows.Next() {
		var (
			e       models.AccessEntry
			voterID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &voterID, &e.IPHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan access entry: %w", err)
		}
		if voterID.Valid {
			e.VoterID = &voterID.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access entries: %w", err)
	}
	return entries, nil
}
