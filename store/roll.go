// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/query"
)

// ImportVoters inserts voters from the electoral roll in one transaction.
// Tags start empty. Returns the number of rows inserted.
func (s *Store) ImportVoters(ctx context.Context, voters []models.Voter) (int, error) {
	if len(voters) == 0 {
		return 0, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(`
			INSERT INTO voters (seq, identity_no, alt_identity_no, name, name_folded, birth_year, gender, area_code, area, district_code, district, home_area, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`))
		if err != nil {
			return fmt.Errorf("prepare voter insert: %w", err)
		}
		defer stmt.Close()

		now := s.now().UTC()
		for _, v := range voters {
			var altID *string
			if v.AltIdentityNo != "" {
				altID = &v.AltIdentityNo
			}
			_, err := stmt.ExecContext(ctx, v.Seq, v.IdentityNo, altID, v.Name, query.Fold(v.Name), v.BirthYear, v.Gender,
				v.AreaCode, v.Area, v.DistrictCode, v.District, v.HomeArea, now)
			if err != nil {
				return fmt.Errorf("insert voter %s: %w", v.IdentityNo, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(voters), nil
}

// Diagnosis reports how voters and principals line up by home area
type Diagnosis struct {
	Areas             []models.AreaCount
	VotersWithoutArea int
	// Principals whose home area has no voters
	Unmatched []models.Principal
}

// Diagnose inspects the whole database without an acting principal.
// Used by the diagnose command.
func (s *Store) Diagnose(ctx context.Context) (Diagnosis, error) {
	var d Diagnosis

	rows, err := s.db.QueryContext(ctx, `
		SELECT home_area, COUNT(*) FROM voters
		WHERE home_area <> ''
		GROUP BY home_area
		ORDER BY home_area
	`)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("count voters by area: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.AreaCount
		if err := rows.Scan(&c.HomeArea, &c.Voters); err != nil {
			return Diagnosis{}, fmt.Errorf("scan area count: %w", err)
		}
		d.Areas = append(d.Areas, c)
	}
	if err := rows.Err(); err != nil {
		return Diagnosis{}, fmt.Errorf("count voters by area: %w", err)
	}
	// SQLite runs on one connection; release it before the next query
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters WHERE home_area = ''`).Scan(&d.VotersWithoutArea); err != nil {
		return Diagnosis{}, fmt.Errorf("count voters without area: %w", err)
	}

	prows, err := s.db.QueryContext(ctx, `
		SELECT `+principalColumns+` FROM users u
		WHERE u.home_area IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM voters v WHERE v.home_area = u.home_area)
		ORDER BY u.username
	`)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("find unmatched users: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		p, err := scanPrincipal(prows)
		if err != nil {
			return Diagnosis{}, fmt.Errorf("scan user: %w", err)
		}
		d.Unmatched = append(d.Unmatched, p)
	}
	if err := prows.Err(); err != nil {
		return Diagnosis{}, fmt.Errorf("find unmatched users: %w", err)
	}

	return d, nil
}
