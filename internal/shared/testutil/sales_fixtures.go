package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"salespulse/internal/analytics"
)

// SalesHeader is the column layout of the sales CSV used in tests.
var SalesHeader = []string{
	"Transaction ID", "Date", "Product Category", "Product Name",
	"Units Sold", "Unit Price", "Total Revenue", "Region", "Payment Method",
}

// SalesFixtures provides test rows and helpers for writing them to disk.
type SalesFixtures struct {
	TestDataDir string
}

// NewSalesFixtures creates a new fixtures manager rooted at dir.
func NewSalesFixtures(dir string) *SalesFixtures {
	return &SalesFixtures{TestDataDir: dir}
}

// Date returns midnight UTC on the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Rows returns a small mixed dataset across three categories and regions.
func (f *SalesFixtures) Rows() []analytics.Row {
	return []analytics.Row{
		{Date: Date(2024, 1, 1), OrderID: "10001", Region: "North America", Category: "Electronics",
			ProductName: "iPhone 14 Pro", PaymentMethod: "Credit Card", UnitsSold: 2, UnitPrice: 999.99, Revenue: analytics.Float64(1999.98)},
		{Date: Date(2024, 1, 2), OrderID: "10002", Region: "Europe", Category: "Home Appliances",
			ProductName: "Dyson V11 Vacuum", PaymentMethod: "PayPal", UnitsSold: 1, UnitPrice: 499.99, Revenue: analytics.Float64(499.99)},
		{Date: Date(2024, 1, 3), OrderID: "10003", Region: "Asia", Category: "Clothing",
			ProductName: "Levi's 501 Jeans", PaymentMethod: "Debit Card", UnitsSold: 3, UnitPrice: 69.99, Revenue: analytics.Float64(209.97)},
		{Date: Date(2024, 1, 4), OrderID: "10004", Region: "North America", Category: "Electronics",
			ProductName: "USB-C Cable", PaymentMethod: "Credit Card", UnitsSold: 4, UnitPrice: 19.99, Revenue: analytics.Float64(79.96)},
		{Date: Date(2024, 1, 5), OrderID: "10005", Region: "Europe", Category: "Electronics",
			ProductName: "Sony WH-1000XM5", PaymentMethod: "PayPal", UnitsSold: 1, UnitPrice: 399.99, Revenue: analytics.Float64(399.99)},
	}
}

// CSVRecords renders rows in the SalesHeader layout, header first.
func (f *SalesFixtures) CSVRecords(rows []analytics.Row) [][]string {
	records := [][]string{SalesHeader}
	for _, r := range rows {
		revenue := ""
		if r.Revenue != nil {
			revenue = strconv.FormatFloat(*r.Revenue, 'f', -1, 64)
		}
		date := ""
		if r.HasDate() {
			date = r.Date.Format(analytics.DateLayout)
		}
		records = append(records, []string{
			r.OrderID, date, r.Category, r.ProductName,
			strconv.Itoa(r.UnitsSold), strconv.FormatFloat(r.UnitPrice, 'f', -1, 64), revenue,
			r.Region, r.PaymentMethod,
		})
	}
	return records
}

// WriteCSV writes records to name inside TestDataDir and returns the full path.
func (f *SalesFixtures) WriteCSV(name string, records [][]string) (string, error) {
	if err := os.MkdirAll(f.TestDataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(f.TestDataDir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	return path, nil
}

// MustWriteSalesCSV writes the default fixture rows to a temp dir and returns the path.
func MustWriteSalesCSV(t *testing.T) string {
	t.Helper()
	f := NewSalesFixtures(t.TempDir())
	path, err := f.WriteCSV("sales.csv", f.CSVRecords(f.Rows()))
	if err != nil {
		t.Fatalf("write fixture csv: %v", err)
	}
	return path
}
