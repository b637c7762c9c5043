package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"salespulse/internal/analytics"
	"salespulse/internal/insights"
	"salespulse/internal/services"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

var numericColumns = []table.ColumnConfig{
	{Number: 2, Align: text.AlignRight},
	{Number: 3, Align: text.AlignRight},
	{Number: 4, Align: text.AlignRight},
	{Number: 5, Align: text.AlignRight},
}

func renderKPIs(w io.Writer, report *analytics.KPIReport) {
	summary := newTable(w, "Summary")
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"Total revenue", money(report.TotalRevenue)},
		{"Total units", report.TotalUnits},
		{"Orders", report.OrderCount},
		{"Records", report.RecordCount},
		{"Avg revenue per order", money(report.AvgRevenuePerOrder)},
		{"Avg unit price (weighted)", money(report.AvgUnitPriceWeighted)},
		{"Avg unit price (simple)", money(report.AvgUnitPriceSimple)},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	summary.Render()

	renderGroups(w, "Revenue by category", report.BreakdownByCategory)
	renderGroups(w, "Revenue by region", report.BreakdownByRegion)

	top := newTable(w, "Top products")
	top.AppendHeader(table.Row{"Product", "Revenue", "Units", "Records"})
	for _, p := range report.TopProducts {
		top.AppendRow(table.Row{p.ProductName, money(p.Revenue), p.UnitsSold, p.RecordCount})
	}
	top.SetColumnConfigs(numericColumns[:3])
	top.Render()
}

func renderGroups(w io.Writer, title string, groups []analytics.GroupMetric) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Label", "Revenue", "Share", "Units", "Records"})
	for _, g := range groups {
		t.AppendRow(table.Row{g.Label, money(g.Revenue), percent(g.Share), g.UnitsSold, g.RecordCount})
	}
	t.SetColumnConfigs(numericColumns)
	t.Render()
}

func renderPreview(w io.Writer, result *services.FilterResponse) {
	fmt.Fprintf(w, "Matched rows: %d\n", result.RowCount)
	if len(result.Preview) == 0 {
		return
	}

	t := newTable(w, fmt.Sprintf("Preview (%d)", len(result.Preview)))
	header := make(table.Row, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range result.Preview {
		date := ""
		if r.HasDate() {
			date = r.Date.Format(analytics.DateLayout)
		}
		revenue := ""
		if r.Revenue != nil {
			revenue = money(*r.Revenue)
		}
		t.AppendRow(table.Row{
			date, r.OrderID, r.Region, r.Category, r.ProductName,
			r.PaymentMethod, r.UnitsSold, money(r.UnitPrice), revenue,
		})
	}
	t.Render()
}

func renderInsights(w io.Writer, report *insights.Report) {
	if report.Note != "" {
		fmt.Fprintf(w, "Note: %s\n", report.Note)
	}

	fmt.Fprintln(w, "\n=== INSIGHTS ===")
	for i, item := range report.Insights {
		fmt.Fprintf(w, "%d. %s\n", i+1, item)
	}

	fmt.Fprintln(w, "\n=== SUMMARY ===")
	fmt.Fprintln(w, report.Summary)

	fmt.Fprintln(w, "\n=== RECOMMENDATIONS ===")
	for i, item := range report.Recommendations {
		fmt.Fprintf(w, "%d. %s\n", i+1, item)
	}
}

func renderDataset(w io.Writer, info *services.DatasetInfo) {
	t := newTable(w, "Dataset")
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Path", info.Path})
	t.AppendRow(table.Row{"Loaded", info.Loaded})
	if ds := info.Dataset; ds != nil {
		t.AppendRows([]table.Row{
			{"Format", ds.Format},
			{"Rows", ds.Stats.Rows},
			{"Skipped rows", ds.Stats.SkippedRows},
			{"Coerced cells", ds.Stats.CoercedCells},
			{"Undated rows", ds.Stats.UndatedRows},
			{"Rows without revenue", ds.Stats.NoRevenue},
			{"Load duration", ds.Duration.String()},
		})
	}
	t.Render()
}
