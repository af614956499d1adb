// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package importer loads an electoral roll CSV into the voter directory.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
)

// BatchSize is the default number of rows inserted per transaction
const BatchSize = 1000

// Roll column names
const (
	ColSeq          = "BIL"
	ColIdentityNo   = "NO K/P"
	ColAltIdentity  = "NO K/P ID LAIN"
	ColGender       = "JANTINA"
	ColBirthYear    = "TAHUN LAHIR"
	ColName         = "NAMA PEMILIH"
	ColAreaCode     = "KOD DAERAH MENGUNDI"
	ColArea         = "DAERAH MENGUNDI"
	ColDistrictCode = "KOD LOKALITI"
	ColDistrict     = "LOKALITI"
	ColHomeArea     = "DUN"
)

var required = []string{ColSeq, ColIdentityNo, ColGender, ColBirthYear, ColName}

// Inserter stores a batch of voters
type Inserter interface {
	ImportVoters(ctx context.Context, voters []models.Voter) (int, error)
}

type Options struct {
	// HomeArea fills rows without a DUN column or value
	HomeArea  string
	BatchSize int
	// Progress is called after each batch with the running total
	Progress func(total int)
}

// Import reads the roll from r and inserts it in batches. Rows already
// inserted stay inserted if a later batch fails. Returns the number of
// voters inserted.
func Import(ctx context.Context, r io.Reader, ins Inserter, opts Options) (int, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = BatchSize
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: empty file", apperr.ErrValidation)
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return 0, fmt.Errorf("%w: missing column %q", apperr.ErrValidation, name)
		}
	}
	if _, ok := cols[ColHomeArea]; !ok && opts.HomeArea == "" {
		slog.Warn("roll has no DUN column and no home area was given; voters will not be visible to area-scoped users")
	}

	var (
		total int
		batch = make([]models.Voter, 0, opts.BatchSize)
		line  = 1
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := ins.ImportVoters(ctx, batch)
		if err != nil {
			return fmt.Errorf("insert batch ending at line %d: %w", line, err)
		}
		total += n
		batch = batch[:0]
		if opts.Progress != nil {
			opts.Progress(total)
		}
		return nil
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}

		v, err := parseRecord(record, cols, opts.HomeArea)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, v)

		if len(batch) == opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	return cols
}

func parseRecord(record []string, cols map[string]int, homeArea string) (models.Voter, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	v := models.Voter{
		IdentityNo:    get(ColIdentityNo),
		AltIdentityNo: get(ColAltIdentity),
		Name:          get(ColName),
		Gender:        strings.ToUpper(get(ColGender)),
		AreaCode:      get(ColAreaCode),
		Area:          get(ColArea),
		DistrictCode:  get(ColDistrictCode),
		District:      get(ColDistrict),
		HomeArea:      get(ColHomeArea),
	}
	if v.HomeArea == "" {
		v.HomeArea = homeArea
	}

	var err error
	if v.Seq, err = strconv.Atoi(get(ColSeq)); err != nil {
		return models.Voter{}, fmt.Errorf("%w: %s must be a number", apperr.ErrValidation, ColSeq)
	}
	if v.BirthYear, err = strconv.Atoi(get(ColBirthYear)); err != nil {
		return models.Voter{}, fmt.Errorf("%w: %s must be a year", apperr.ErrValidation, ColBirthYear)
	}
	if v.IdentityNo == "" || v.Name == "" {
		return models.Voter{}, fmt.Errorf("%w: %s and %s are required", apperr.ErrValidation, ColIdentityNo, ColName)
	}
	if v.Gender != models.GenderMale && v.Gender != models.GenderFemale {
		return models.Voter{}, fmt.Errorf("%w: %s must be L or P", apperr.ErrValidation, ColGender)
	}
	return v, nil
}
