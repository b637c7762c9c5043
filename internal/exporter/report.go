package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"salespulse/internal/analytics"
)

// ReportHeaders is the header row of a KPI report CSV. The layout is long
// form: one metric per row, grouped by section.
var ReportHeaders = []string{"section", "label", "metric", "value"}

// Report sections.
const (
	SectionSummary     = "summary"
	SectionFilters     = "filters"
	SectionCategory    = "category"
	SectionRegion      = "region"
	SectionTopProducts = "top_products"
)

// ReportExporter renders KPI reports as CSV or XLSX.
type ReportExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportExporter creates a report exporter.
func NewReportExporter(logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{
		csv:    NewCSVWriter(logger),
		logger: logger.With(slog.String("component", "report_exporter")),
	}
}

// Export writes report to w in format.
func (e *ReportExporter) Export(w io.Writer, report *analytics.KPIReport, format Format) error {
	switch format {
	case FormatCSV:
		records, err := ReportRecords(report)
		if err != nil {
			return err
		}
		return e.csv.Write(w, WriteOptions{
			Headers:   ReportHeaders,
			Records:   records,
			BOMPrefix: true,
		})
	case FormatXLSX:
		return WriteReportXLSX(w, report)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ReportRecords flattens report into ReportHeaders rows.
func ReportRecords(report *analytics.KPIReport) ([][]string, error) {
	filters, err := json.Marshal(report.AppliedFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}

	records := [][]string{
		{SectionSummary, "", "total_revenue", formatFloat(report.TotalRevenue)},
		{SectionSummary, "", "total_units", formatInt(report.TotalUnits)},
		{SectionSummary, "", "order_count", formatInt(int64(report.OrderCount))},
		{SectionSummary, "", "record_count", formatInt(int64(report.RecordCount))},
		{SectionSummary, "", "avg_revenue_per_order", formatFloat(report.AvgRevenuePerOrder)},
		{SectionSummary, "", "avg_unit_price_weighted", formatFloat(report.AvgUnitPriceWeighted)},
		{SectionSummary, "", "avg_unit_price_simple", formatFloat(report.AvgUnitPriceSimple)},
		{SectionFilters, "", "applied_filters", string(filters)},
	}

	records = appendGroups(records, SectionCategory, report.BreakdownByCategory)
	records = appendGroups(records, SectionRegion, report.BreakdownByRegion)

	for _, p := range report.TopProducts {
		records = append(records,
			[]string{SectionTopProducts, p.ProductName, "revenue", formatFloat(p.Revenue)},
			[]string{SectionTopProducts, p.ProductName, "units_sold", formatInt(p.UnitsSold)},
			[]string{SectionTopProducts, p.ProductName, "record_count", formatInt(int64(p.RecordCount))},
		)
	}
	return records, nil
}

func appendGroups(records [][]string, section string, groups []analytics.GroupMetric) [][]string {
	for _, g := range groups {
		records = append(records,
			[]string{section, g.Label, "revenue", formatFloat(g.Revenue)},
			[]string{section, g.Label, "share_of_total_revenue", formatShare(g.Share)},
			[]string{section, g.Label, "units_sold", formatInt(g.UnitsSold)},
			[]string{section, g.Label, "record_count", formatInt(int64(g.RecordCount))},
		)
	}
	return records
}
