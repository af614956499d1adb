// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package query

import (
	"strings"

	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/policy"
)

// Compile turns a filter and a policy scope into a parameterised WHERE
// clause over the voters table aliased as v. Values are never interpolated.
// Placeholders are ?; callers rebind for their driver.
//
// year is the calendar year ages are computed against.
func Compile(f Filter, scope policy.Scope, year int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}

	// Scope first so it can never be widened by a user filter
	if !scope.All {
		add("v.home_area = ?", scope.HomeArea)
	}

	if f.Name != "" {
		add(`v.name_folded LIKE ? ESCAPE '\'`, "%"+escapeLike(Fold(f.Name))+"%")
	}
	if f.Gender != "" {
		add("v.gender = ?", f.Gender)
	}
	if f.Age != nil {
		add("v.birth_year = ?", year-*f.Age)
	}
	if f.AgeBand != "" {
		lo, hi, _ := f.AgeBand.Bounds()
		if hi == 0 {
			add("v.birth_year <= ?", year-lo)
		} else {
			add("v.birth_year BETWEEN ? AND ?", year-hi, year-lo)
		}
	}
	if len(f.Areas) > 0 {
		add(in("v.area", len(f.Areas)), strs(f.Areas)...)
	}
	if len(f.Districts) > 0 {
		add(in("v.district", len(f.Districts)), strs(f.Districts)...)
	}
	if len(f.Constituencies) > 0 {
		add(in("v.home_area", len(f.Constituencies)), strs(f.Constituencies)...)
	}
	switch f.Tag {
	case "":
	case models.TagUntagged:
		add("v.tag IS NULL")
	default:
		add("v.tag = ?", f.Tag)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// OrderBy renders the ORDER BY clause. id is always the final key so
// results are deterministic and default to insertion order.
func OrderBy(o Order) string {
	col, ok := sortColumns[o.Field]
	if !ok {
		return " ORDER BY v.id"
	}
	dir := " ASC"
	if o.Desc {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir + ", v.id"
}

// Limit renders LIMIT/OFFSET for a 1-based page
func Limit(page int) (string, []any) {
	if page < 1 {
		page = 1
	}
	return " LIMIT ? OFFSET ?", []any{PageSize, (page - 1) * PageSize}
}

func in(col string, n int) string {
	return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func strs(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
