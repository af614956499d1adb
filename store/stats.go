// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/policy"
	"github.com/danielhkuo/votertag/query"
)

// Stats summarises the voters the actor may see that match f
func (s *Store) Stats(ctx context.Context, actorID string, f query.Filter) (models.Stats, error) {
	var (
		stats  models.Stats
		year   = s.year()
		tags   = map[string]int{}
		gender = map[string]int{}
		bands  = map[string]int{}
	)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadPrincipal(ctx, tx, actorID)
		if err != nil {
			return err
		}
		scope, err := policy.VoterScope(p, policy.OpSelect)
		if err != nil {
			return err
		}
		stats.HomeArea = scope.HomeArea

		where, args := query.Compile(f, scope, year)
		rows, err := tx.QueryContext(ctx, s.rebind(`
			SELECT v.tag, v.gender, v.birth_year, COUNT(*)
			FROM voters v`+where+`
			GROUP BY v.tag, v.gender, v.birth_year`), args...)
		if err != nil {
			return fmt.Errorf("voter stats: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				tag       sql.NullString
				g         string
				birthYear int
				n         int
			)
			if err := rows.Scan(&tag, &g, &birthYear, &n); err != nil {
				return fmt.Errorf("scan voter stats: %w", err)
			}
			stats.Total += n
			tags[tag.String] += n
			gender[g] += n
			if band := query.BandFor(year - birthYear); band != "" {
				bands[string(band)] += n
			}
		}
		return rows.Err()
	})
	if err != nil {
		return models.Stats{}, err
	}

	yes, unsure, no := tags[string(models.TagYes)], tags[string(models.TagUnsure)], tags[string(models.TagNo)]
	stats.Yes = count(yes, stats.Total)
	stats.Unsure = count(unsure, stats.Total)
	stats.No = count(no, stats.Total)
	stats.Untagged = count(tags[""], stats.Total)

	stats.Gender = map[string]models.Count{
		models.GenderMale:   count(gender[models.GenderMale], stats.Total),
		models.GenderFemale: count(gender[models.GenderFemale], stats.Total),
	}
	stats.AgeBands = make(map[string]models.Count, len(query.AgeBands))
	for _, b := range query.AgeBands {
		stats.AgeBands[string(b)] = count(bands[string(b)], stats.Total)
	}

	// Yes share among tagged voters, applied to the whole population
	if tagged := yes + unsure + no; tagged > 0 {
		share := float64(yes) / float64(tagged)
		stats.YesShare = round2(share * 100)
		stats.ProjectedYes = int(math.Round(float64(stats.Total) * share))
	}

	return stats, nil
}

func count(n, total int) models.Count {
	c := models.Count{Count: n}
	if total > 0 {
		c.Percentage = round2(float64(n) / float64(total) * 100)
	}
	return c
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
