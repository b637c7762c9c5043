package exporter

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a format name case-insensitively. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension of f, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// formatFloat formats a monetary value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatShare formats a 0..1 fraction with 4 decimal places.
func formatShare(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
