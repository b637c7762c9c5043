package exporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/analytics"
)

// Workbook sheet names.
const (
	SheetSummary     = "Summary"
	SheetCategory    = "By Category"
	SheetRegion      = "By Region"
	SheetTopProducts = "Top Products"
)

var groupHeaders = []interface{}{"Label", "Revenue", "Share", "Units Sold", "Records"}

// WriteReportXLSX writes report as a workbook with one sheet per section.
func WriteReportXLSX(w io.Writer, report *analytics.KPIReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	filters, err := json.Marshal(report.AppliedFilters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Total Revenue", report.TotalRevenue},
		{"Total Units", report.TotalUnits},
		{"Orders", report.OrderCount},
		{"Records", report.RecordCount},
		{"Avg Revenue per Order", report.AvgRevenuePerOrder},
		{"Avg Unit Price (weighted)", report.AvgUnitPriceWeighted},
		{"Avg Unit Price (simple)", report.AvgUnitPriceSimple},
		{"Applied Filters", string(filters)},
	}
	if err := writeSheet(f, SheetSummary, summary, bold); err != nil {
		return err
	}

	if err := writeSheet(f, SheetCategory, groupRows(report.BreakdownByCategory), bold); err != nil {
		return err
	}
	if err := writeSheet(f, SheetRegion, groupRows(report.BreakdownByRegion), bold); err != nil {
		return err
	}

	products := [][]interface{}{{"Rank", "Product", "Revenue", "Units Sold", "Records"}}
	for i, p := range report.TopProducts {
		products = append(products, []interface{}{i + 1, p.ProductName, p.Revenue, p.UnitsSold, p.RecordCount})
	}
	if err := writeSheet(f, SheetTopProducts, products, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func groupRows(groups []analytics.GroupMetric) [][]interface{} {
	rows := [][]interface{}{groupHeaders}
	for _, g := range groups {
		rows = append(rows, []interface{}{g.Label, g.Revenue, g.Share, g.UnitsSold, g.RecordCount})
	}
	return rows
}

// writeSheet writes rows starting at A1, creating the sheet if needed. The
// first row is styled as a header.
func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}
