// Package exporter writes KPI reports to files for download and the CLI.
//
// CSVWriter is the low-level writer with an optional UTF-8 BOM for Excel
// compatibility. ReportExporter renders an analytics.KPIReport either as a
// long-form CSV (section, label, metric, value) or as an XLSX workbook with
// Summary, By Category, By Region and Top Products sheets.
//
// Example usage:
//
//	exp := exporter.NewReportExporter(logger)
//	format, err := exporter.ParseFormat("xlsx")
//	if err != nil {
//	    return err
//	}
//	err = exp.Export(w, report, format)
package exporter
