package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/analytics"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/files"
	"salespulse/internal/validation"
)

// Format is the on-disk encoding of a dataset.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ctxCheckInterval is how many rows are decoded between cancellation checks.
const ctxCheckInterval = 1024

// LoadStats describes how clean the source data was.
type LoadStats struct {
	Rows         int `json:"rows"`
	SkippedRows  int `json:"skipped_rows"`
	CoercedCells int `json:"coerced_cells"`
	UndatedRows  int `json:"undated_rows"`
	NoRevenue    int `json:"rows_without_revenue"`
}

// Dataset is an immutable, fully decoded sales table.
type Dataset struct {
	Rows     []analytics.Row `json:"-"`
	Source   string          `json:"source"`
	Format   Format          `json:"format"`
	Sheet    string          `json:"sheet,omitempty"`
	LoadedAt time.Time       `json:"loaded_at"`
	Duration time.Duration   `json:"load_duration_ns"`
	Stats    LoadStats       `json:"stats"`
}

// Loader decodes sales exports into analytics rows. Malformed numeric cells
// are coerced to zero and unparseable dates leave the row undated; both are
// counted in LoadStats rather than failing the load.
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	sheet     string
	now       func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSheet selects the worksheet read from XLSX files. The first sheet is
// used when empty.
func WithSheet(name string) LoaderOption {
	return func(l *Loader) { l.sheet = name }
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		logger:    logger.With(slog.String("component", "loader")),
		validator: validation.NewFileValidator(logger),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the dataset at path, choosing the decoder by file extension.
// When path is a directory the newest CSV or XLSX file in it is read.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	start := time.Now()
	path, err := l.resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	ext, err := l.validator.ValidateDatasetFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("dataset file is not usable", err).
			WithContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open dataset", err).
			WithContext("path", path)
	}
	defer f.Close()

	var ds *Dataset
	if ext == validation.ExtXLSX {
		ds, err = l.ReadXLSX(ctx, f)
	} else {
		ds, err = l.ReadCSV(ctx, f)
	}
	if err != nil {
		return nil, err
	}
	ds.Source = path
	ds.Duration = time.Since(start)

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.String("format", string(ds.Format)),
		slog.Int("rows", ds.Stats.Rows),
		slog.Int("skipped_rows", ds.Stats.SkippedRows),
		slog.Int("coerced_cells", ds.Stats.CoercedCells),
		slog.Int("undated_rows", ds.Stats.UndatedRows),
		slog.Duration("duration", ds.Duration))

	if ds.Stats.CoercedCells > 0 {
		l.logger.WarnContext(ctx, "malformed numeric cells coerced to zero",
			slog.String("path", path),
			slog.Int("coerced_cells", ds.Stats.CoercedCells))
	}
	return ds, nil
}

func (l *Loader) resolve(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}

	latest, err := files.NewDiscovery("", validation.ExtCSV, validation.ExtXLSX).Latest(path)
	if err != nil {
		return "", apperrors.NewStorageError("no dataset found in directory", err).
			WithContext("path", path)
	}
	l.logger.DebugContext(ctx, "dataset directory resolved",
		slog.String("directory", path),
		slog.String("file", latest.Name),
		slog.Time("modified", latest.ModTime))
	return latest.Path, nil
}

// ReadCSV decodes a CSV stream. A UTF-8 byte order mark is tolerated.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	ds, err := l.decode(ctx, reader.Read)
	if err != nil {
		return nil, err
	}
	ds.Format = FormatCSV
	return ds, nil
}

// ReadXLSX decodes a workbook stream, streaming rows of the selected sheet.
func (l *Loader) ReadXLSX(ctx context.Context, r io.Reader) (*Dataset, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer wb.Close()

	sheet := l.sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("sheet", sheet)
	}
	defer rows.Close()

	next := func() ([]string, error) {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return rows.Columns(excelize.Options{RawCellValue: true})
	}

	ds, err := l.decode(ctx, next)
	if err != nil {
		return nil, err
	}
	ds.Format = FormatXLSX
	ds.Sheet = sheet
	return ds, nil
}

// decode consumes records from next until io.EOF. The first non-blank record
// is the header.
func (l *Loader) decode(ctx context.Context, next func() ([]string, error)) (*Dataset, error) {
	var (
		cm        columnMap
		haveHead  bool
		stats     LoadStats
		out       []analytics.Row
		recordNum int
	)

	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		recordNum++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.SkippedRows++
				continue
			}
			return nil, apperrors.NewParsingError("failed to read dataset", err).
				WithContext("record", recordNum)
		}

		if recordNum%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if isBlank(record) {
			continue
		}

		if !haveHead {
			var missing []string
			cm, missing = mapColumns(record)
			if len(missing) > 0 {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("dataset is missing required columns: %s", strings.Join(missing, ", ")), nil).
					WithContext("missing_columns", missing)
			}
			haveHead = true
			continue
		}

		row, coerced, dated := cm.toRow(record)
		stats.CoercedCells += coerced
		if !dated {
			stats.UndatedRows++
		}
		if row.Revenue == nil {
			stats.NoRevenue++
		}
		out = append(out, row)
	}

	if !haveHead {
		return nil, apperrors.NewParsingError("dataset is empty", nil)
	}

	stats.Rows = len(out)
	return &Dataset{
		Rows:     out,
		LoadedAt: l.now().UTC(),
		Stats:    stats,
	}, nil
}

// toRow converts one record. coerced counts numeric cells that could not be
// parsed and were set to zero; dated is false when the row has no usable date.
func (cm columnMap) toRow(record []string) (row analytics.Row, coerced int, dated bool) {
	row = analytics.Row{
		OrderID:       cm.cell(record, ColOrderID),
		Region:        cm.cell(record, ColRegion),
		Category:      cm.cell(record, ColCategory),
		ProductName:   cm.cell(record, ColProductName),
		PaymentMethod: cm.cell(record, ColPaymentMethod),
	}

	date, ok := parseDate(cm.cell(record, ColDate))
	row.Date = date
	dated = ok && !date.IsZero()

	if s := cm.cell(record, ColUnitsSold); s != "" {
		if n, ok := parseUnits(s); ok {
			row.UnitsSold = n
		} else {
			coerced++
		}
	}

	if s := cm.cell(record, ColUnitPrice); s != "" {
		if v, ok := parseNumber(s); ok {
			row.UnitPrice = v
		} else {
			coerced++
		}
	}

	if s := cm.cell(record, ColRevenue); s != "" {
		if v, ok := parseNumber(s); ok {
			row.Revenue = analytics.Float64(v)
		} else {
			row.Revenue = analytics.Float64(0)
			coerced++
		}
	}

	return row, coerced, dated
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
