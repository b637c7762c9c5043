package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"02.01.2006",
}

// parseDate parses a date cell. Bare numbers are read as Excel serial dates.
// ok is false for unparseable text; blank cells return the zero time and ok.
func parseDate(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			y, m, d := parsed.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
			y, m, d := parsed.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", " ", "")

// parseNumber parses a numeric cell, tolerating thousands separators and a
// currency sign. Non-finite values are rejected.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(numberCleaner.Replace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseUnits parses a unit count. Fractional values are truncated.
func parseUnits(s string) (int, bool) {
	cleaned := numberCleaner.Replace(s)
	if n, err := strconv.Atoi(cleaned); err == nil {
		return n, true
	}
	v, ok := parseNumber(cleaned)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int(v), true
}
