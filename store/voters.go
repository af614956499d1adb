// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/policy"
	"github.com/danielhkuo/votertag/query"
)

// MaxBatchSize caps the number of items in one batch tag update
const MaxBatchSize = 500

var ErrVoterNotFound = fmt.Errorf("%w: voter not found", apperr.ErrNotFound)

const voterColumns = `v.id, v.seq, v.identity_no, v.alt_identity_no, v.name, v.birth_year, v.gender, v.area_code, v.area, v.district_code, v.district, v.home_area, v.tag, v.updated_at`

func scanVoter(row rowScanner) (models.Voter, error) {
	var (
		v     models.Voter
		altID sql.NullString
		tag   sql.NullString
	)
	err := row.Scan(&v.ID, &v.Seq, &v.IdentityNo, &altID, &v.Name, &v.BirthYear, &v.Gender, &v.AreaCode, &v.Area, &v.DistrictCode, &v.District, &v.HomeArea, &tag, &v.UpdatedAt)
	if err != nil {
		return models.Voter{}, err
	}
	v.AltIdentityNo = altID.String
	if tag.Valid {
		t := models.Tag(tag.String)
		v.Tag = &t
	}
	return v, nil
}

func (s *Store) voterByID(ctx context.Context, tx *sql.Tx, id int64) (models.Voter, error) {
	row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+voterColumns+` FROM voters v WHERE v.id = ?`), id)
	v, err := scanVoter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, ErrVoterNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("load voter: %w", err)
	}
	return v, nil
}

// ListVoters returns one page of the voters the actor may see that match f
func (s *Store) ListVoters(ctx context.Context, actorID string, f query.Filter, o query.Order, page int) (models.VoterPage, error) {
	if page < 1 {
		page = 1
	}
	if page > query.MaxPage {
		return models.VoterPage{}, fmt.Errorf("%w: page must be at most %d", apperr.ErrValidation, query.MaxPage)
	}
	result := models.VoterPage{Data: []models.Voter{}, Page: page, PageSize: query.PageSize}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		scope, err := policy.VoterScope(p, policy.OpSelect)
		if err != nil {
			return err
		}

		where, args := query.Compile(f, scope, s.year())
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM voters v`+where), args...).Scan(&result.Total); err != nil {
			return fmt.Errorf("count voters: %w", err)
		}
		result.TotalPages = query.TotalPages(result.Total)
		if result.Total == 0 {
			return nil
		}

		limit, limitArgs := query.Limit(page)
		rows, err := tx.QueryContext(ctx, s.rebind(`SELECT `+voterColumns+` FROM voters v`+where+query.OrderBy(o)+limit), append(args, limitArgs...)...)
		if err != nil {
			return fmt.Errorf("list voters: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVoter(rows)
			if err != nil {
				return fmt.Errorf("scan voter: %w", err)
			}
			result.Data = append(result.Data, v)
		}
		return rows.Err()
	})
	if err != nil {
		return models.VoterPage{}, err
	}
	return result, nil
}

// GetVoter returns a single voter. A voter outside the actor's scope is
// reported as not found so its existence is not revealed.
func (s *Store) GetVoter(ctx context.Context, actorID string, id int64) (models.Voter, error) {
	var v models.Voter
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		scope, err := policy.VoterScope(p, policy.OpSelect)
		if err != nil {
			return err
		}
		v, err = s.voterByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !scope.Contains(v) {
			return ErrVoterNotFound
		}
		return nil
	})
	if err != nil {
		return models.Voter{}, err
	}
	return v, nil
}

// UpdateTag sets or clears the tag of one voter. A nil tag clears it.
//
// The policy is checked against the stored voter before the write, and the
// audit entry is written on the same transaction. If the audit write fails
// the tag change is rolled back and ErrConflict is returned. Setting the
// tag it already has changes nothing and records nothing; changed reports
// which of the two happened.
func (s *Store) UpdateTag(ctx context.Context, actorID string, voterID int64, tag *models.Tag, ipHash string) (v models.Voter, changed bool, err error) {
	if tag != nil {
		if _, err := models.ParseTag(string(*tag)); err != nil {
			return models.Voter{}, false, err
		}
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if _, err := policy.VoterScope(p, policy.OpUpdate); err != nil {
			return err
		}
		v, err = s.voterByID(ctx, tx, voterID)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeVoter(p, policy.OpUpdate, v); err != nil {
			return err
		}

		if models.SameTag(v.Tag, tag) {
			return nil
		}

		old := v.Tag
		now := s.now().UTC()
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE voters SET tag = ?, updated_at = ? WHERE id = ?`), models.TagString(tag), now, voterID)
		if err != nil {
			return fmt.Errorf("update tag: %w", err)
		}

		if _, err := s.audit.RecordTagChange(ctx, tx, p.ID, voterID, old, tag, ipHash); err != nil {
			slog.Error("failed to record audit entry", "voter_id", voterID, "user_id", p.ID, "error", err)
			return fmt.Errorf("%w: change could not be recorded", apperr.ErrConflict)
		}

		v.Tag = tag
		v.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return models.Voter{}, false, err
	}
	return v, changed, nil
}

// BatchResult is the outcome of one item of a batch update
type BatchResult struct {
	VoterID int64
	Voter   models.Voter
	Changed bool
	Err     error
}

// BatchUpdateTag applies each item as its own UpdateTag. One item failing
// does not affect the others.
func (s *Store) BatchUpdateTag(ctx context.Context, actorID string, items []models.BatchTagItem, ipHash string) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", apperr.ErrValidation)
	}
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d items per batch", apperr.ErrValidation, MaxBatchSize)
	}

	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		v, changed, err := s.UpdateTag(ctx, actorID, item.VoterID, item.Tag, ipHash)
		results = append(results, BatchResult{VoterID: item.VoterID, Voter: v, Changed: changed, Err: err})
	}
	return results, nil
}

var valueColumns = map[string]string{
	"area":         "v.area",
	"district":     "v.district",
	"constituency": "v.home_area",
}

// DistinctValues lists the distinct non-empty values of column among the
// voters the actor may see, sorted. For district, areas narrows the result
// to districts observed in those areas.
func (s *Store) DistinctValues(ctx context.Context, actorID, column string, areas []string) ([]string, error) {
	col, ok := valueColumns[column]
	if !ok {
		return nil, fmt.Errorf("%w: column must be one of area, district, constituency", apperr.ErrValidation)
	}

	values := []string{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		scope, err := policy.VoterScope(p, policy.OpSelect)
		if err != nil {
			return err
		}

		var f query.Filter
		if column == "district" {
			f.Areas = areas
		}
		where, args := query.Compile(f, scope, s.year())
		if where == "" {
			where = " WHERE " + col + " <> ''"
		} else {
			where += " AND " + col + " <> ''"
		}

		rows, err := tx.QueryContext(ctx, s.rebind(`SELECT DISTINCT `+col+` FROM voters v`+where), args...)
		if err != nil {
			return fmt.Errorf("distinct %s: %w", column, err)
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("scan %s: %w", column, err)
			}
			values = append(values, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(values)
	return values, nil
}

// ExportVoters hands every voter the actor may see that matches f to fn,
// in the requested order. The actor needs the export capability. The rows
// are read in one transaction and fn only runs after it has ended, so a
// slow consumer never holds the connection.
func (s *Store) ExportVoters(ctx context.Context, actorID string, f query.Filter, o query.Order, fn func(models.Voter) error) error {
	var voters []models.Voter
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := policy.Require(p, policy.CapExport); err != nil {
			return err
		}
		scope, err := policy.VoterScope(p, policy.OpSelect)
		if err != nil {
			return err
		}

		where, args := query.Compile(f, scope, s.year())
		rows, err := tx.QueryContext(ctx, s.rebind(`SELECT `+voterColumns+` FROM voters v`+where+query.OrderBy(o)), args...)
		if err != nil {
			return fmt.Errorf("export voters: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVoter(rows)
			if err != nil {
				return fmt.Errorf("scan voter: %w", err)
			}
			voters = append(voters, v)
		}
		return rows.Err()
	})
	if err != nil {
		return err
	}

	for _, v := range voters {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
