// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package export renders voters as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/danielhkuo/votertag/models"
)

// ContentType is the media type of the rendered file
const ContentType = "text/csv; charset=utf-8"

// Header is the first row of every export
var Header = []string{
	"id", "seq", "identity_no", "alt_identity_no", "name", "birth_year", "age", "gender",
	"area_code", "area", "district_code", "district", "home_area", "tag",
}

// Writer writes one voter per row. The header is written before the first
// row, or by Close when no rows were written.
type Writer struct {
	w           *csv.Writer
	year        int
	rows        int
	wroteHeader bool
}

// NewWriter returns a Writer computing ages against year
func NewWriter(w io.Writer, year int) *Writer {
	return &Writer{w: csv.NewWriter(w), year: year}
}

func (w *Writer) writeHeader() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.w.Write(Header)
}

func (w *Writer) Write(v models.Voter) error {
	if err := w.writeHeader(); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	tag := ""
	if v.Tag != nil {
		tag = string(*v.Tag)
	}
	err := w.w.Write([]string{
		strconv.FormatInt(v.ID, 10),
		strconv.Itoa(v.Seq),
		v.IdentityNo,
		v.AltIdentityNo,
		v.Name,
		strconv.Itoa(v.BirthYear),
		strconv.Itoa(v.Age(w.year)),
		v.Gender,
		v.AreaCode,
		v.Area,
		v.DistrictCode,
		v.District,
		v.HomeArea,
		tag,
	})
	if err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.rows++
	return nil
}

// Rows is the number of voters written
func (w *Writer) Rows() int {
	return w.rows
}

// Close writes the header if nothing else was written and flushes
func (w *Writer) Close() error {
	if err := w.writeHeader(); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	w.w.Flush()
	return w.w.Error()
}

// Filename names an export taken at now
func Filename(now time.Time) string {
	return "voters-" + now.Format("20060102-150405") + ".csv"
}
