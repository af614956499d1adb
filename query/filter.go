// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
)

// PageSize is the fixed number of voters per page
const PageSize = 50

// MaxPage is the highest page whose offset fits in an int
const MaxPage = math.MaxInt / PageSize

const (
	maxNameLength = 100
	maxSetSize    = 100
	maxAge        = 150
)

// AgeBand is one of four fixed age ranges
type AgeBand string

const (
	Band18To30 AgeBand = "18-30"
	Band31To40 AgeBand = "31-40"
	Band41To55 AgeBand = "41-55"
	Band56Plus AgeBand = "56+"
)

// AgeBands lists the bands in ascending order
var AgeBands = []AgeBand{Band18To30, Band31To40, Band41To55, Band56Plus}

// Bounds returns the inclusive age range of the band. max is 0 when the
// band is open ended.
func (b AgeBand) Bounds() (min, max int, ok bool) {
	switch b {
	case Band18To30:
		return 18, 30, true
	case Band31To40:
		return 31, 40, true
	case Band41To55:
		return 41, 55, true
	case Band56Plus:
		return 56, 0, true
	}
	return 0, 0, false
}

// BandFor returns the band containing age, or "" below 18
func BandFor(age int) AgeBand {
	for _, b := range AgeBands {
		lo, hi, _ := b.Bounds()
		if age >= lo && (hi == 0 || age <= hi) {
			return b
		}
	}
	return ""
}

// Filter is a declarative voter filter. Zero-valued fields do not filter.
// All set fields compose with AND.
type Filter struct {
	Name           string
	Gender         string
	Age            *int
	AgeBand        AgeBand
	Areas          []string
	Districts      []string
	Constituencies []string
	Tag            string // Yes, Unsure, No or models.TagUntagged
}

// Fold normalises text for case-insensitive comparison
func Fold(s string) string {
	// A Caser is stateful, so one per call
	return cases.Fold().String(s)
}

// ParseFilter reads a filter from query parameters.
// Repeated and comma-separated values are both accepted for set fields.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Name:           strings.TrimSpace(q.Get("name")),
		Gender:         strings.ToUpper(strings.TrimSpace(q.Get("gender"))),
		AgeBand:        AgeBand(strings.TrimSpace(q.Get("age_band"))),
		Areas:          multi(q, "area"),
		Districts:      multi(q, "district"),
		Constituencies: multi(q, "constituency"),
		Tag:            strings.TrimSpace(q.Get("tag")),
	}

	if s := strings.TrimSpace(q.Get("age")); s != "" {
		age, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: age must be a whole number", apperr.ErrValidation)
		}
		f.Age = &age
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func multi(q url.Values, key string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Validate rejects malformed filter values
func (f Filter) Validate() error {
	if len(f.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", apperr.ErrValidation, maxNameLength)
	}
	switch f.Gender {
	case "", models.GenderMale, models.GenderFemale:
	default:
		return fmt.Errorf("%w: gender must be L or P", apperr.ErrValidation)
	}
	if f.Age != nil && (*f.Age < 0 || *f.Age > maxAge) {
		return fmt.Errorf("%w: age must be between 0 and %d", apperr.ErrValidation, maxAge)
	}
	if f.AgeBand != "" {
		if _, _, ok := f.AgeBand.Bounds(); !ok {
			return fmt.Errorf("%w: age_band must be one of 18-30, 31-40, 41-55, 56+", apperr.ErrValidation)
		}
	}
	for name, set := range map[string][]string{"area": f.Areas, "district": f.Districts, "constituency": f.Constituencies} {
		if len(set) > maxSetSize {
			return fmt.Errorf("%w: at most %d %s values", apperr.ErrValidation, maxSetSize, name)
		}
	}
	if f.Tag != "" && f.Tag != models.TagUntagged {
		if _, err := models.ParseTag(f.Tag); err != nil {
			return fmt.Errorf("%w: tag must be Yes, Unsure, No or untagged", apperr.ErrValidation)
		}
	}
	return nil
}

// Matches evaluates the filter against a single voter in memory.
// It agrees with the SQL produced by Compile.
func (f Filter) Matches(v models.Voter, year int) bool {
	if f.Name != "" && !strings.Contains(Fold(v.Name), Fold(f.Name)) {
		return false
	}
	if f.Gender != "" && v.Gender != f.Gender {
		return false
	}
	age := v.Age(year)
	if f.Age != nil && age != *f.Age {
		return false
	}
	if f.AgeBand != "" {
		lo, hi, _ := f.AgeBand.Bounds()
		if age < lo || (hi != 0 && age > hi) {
			return false
		}
	}
	if len(f.Areas) > 0 && !contains(f.Areas, v.Area) {
		return false
	}
	if len(f.Districts) > 0 && !contains(f.Districts, v.District) {
		return false
	}
	if len(f.Constituencies) > 0 && !contains(f.Constituencies, v.HomeArea) {
		return false
	}
	switch f.Tag {
	case "":
	case models.TagUntagged:
		if v.Tag != nil {
			return false
		}
	default:
		if v.Tag == nil || string(*v.Tag) != f.Tag {
			return false
		}
	}
	return true
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Order is a caller-requested sort. The zero value keeps insertion order.
type Order struct {
	Field string
	Desc  bool
}

var sortColumns = map[string]string{
	"name":       "v.name",
	"birth_year": "v.birth_year",
	"area":       "v.area",
	"district":   "v.district",
}

// ParseOrder reads sort and order query parameters
func ParseOrder(q url.Values) (Order, error) {
	o := Order{Field: strings.TrimSpace(q.Get("sort"))}
	if o.Field != "" {
		if _, ok := sortColumns[o.Field]; !ok {
			return Order{}, fmt.Errorf("%w: sort must be one of name, birth_year, area, district", apperr.ErrValidation)
		}
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("order"))) {
	case "", "asc":
	case "desc":
		o.Desc = true
	default:
		return Order{}, fmt.Errorf("%w: order must be asc or desc", apperr.ErrValidation)
	}
	return o, nil
}

// ParsePage reads the 1-based page number. Missing means page 1.
func ParsePage(q url.Values) (int, error) {
	s := strings.TrimSpace(q.Get("page"))
	if s == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page must be a positive whole number", apperr.ErrValidation)
	}
	if page > MaxPage {
		return 0, fmt.Errorf("%w: page must be at most %d", apperr.ErrValidation, MaxPage)
	}
	return page, nil
}

// TotalPages is the page count for total rows
func TotalPages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}
