package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salespulse/internal/analytics"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/shared/testutil"
)

const salesCSV = "\ufeffTransaction ID,Date,Product Category,Product Name,Units Sold,Unit Price,Total Revenue,Region,Payment Method\n" +
	"10001,2024-01-01,Electronics,iPhone 14 Pro,2,999.99,1999.98,North America,Credit Card\n" +
	"10002,2024-01-02,Home Appliances,Dyson V11 Vacuum,1,499.99,,Europe,PayPal\n" +
	"\n" +
	"10003,not a date,Clothing,\"Levi's 501 Jeans\",three,\"1,069.99\",abc,Asia,Debit Card\n"

func newTestLoader(t *testing.T, opts ...LoaderOption) *Loader {
	logger, _ := testutil.NewTestLogger(t)
	l := NewLoader(logger, opts...)
	l.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestLoader_ReadCSV(t *testing.T) {
	ds, err := newTestLoader(t).ReadCSV(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)

	require.Len(t, ds.Rows, 3)
	assert.Equal(t, FormatCSV, ds.Format)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), ds.LoadedAt)

	first := ds.Rows[0]
	assert.Equal(t, "10001", first.OrderID)
	assert.Equal(t, testutil.Date(2024, 1, 1), first.Date)
	assert.Equal(t, "Electronics", first.Category)
	assert.Equal(t, 2, first.UnitsSold)
	require.NotNil(t, first.Revenue)
	assert.Equal(t, 1999.98, *first.Revenue)

	assert.Nil(t, ds.Rows[1].Revenue, "blank revenue stays absent")
	assert.InDelta(t, 499.99, ds.Rows[1].EffectiveRevenue(), 1e-9)

	third := ds.Rows[2]
	assert.False(t, third.HasDate())
	assert.Equal(t, 0, third.UnitsSold)
	assert.Equal(t, 1069.99, third.UnitPrice)
	require.NotNil(t, third.Revenue)
	assert.Zero(t, *third.Revenue)

	assert.Equal(t, LoadStats{Rows: 3, CoercedCells: 2, UndatedRows: 1, NoRevenue: 1}, ds.Stats)
}

func TestLoader_ReadCSVMissingColumns(t *testing.T) {
	input := "Date,Region,Units Sold\n2024-01-01,Asia,1\n"

	_, err := newTestLoader(t).ReadCSV(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	assert.Contains(t, err.Error(), "Transaction ID")
	assert.Contains(t, err.Error(), "Payment Method")
	assert.NotContains(t, err.Error(), "Total Revenue")
}

func TestLoader_ReadCSVEmpty(t *testing.T) {
	_, err := newTestLoader(t).ReadCSV(context.Background(), strings.NewReader("\n\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset is empty")
}

func TestLoader_ReadCSVHeaderAliases(t *testing.T) {
	input := "order_id,order date,category,product,quantity,price,region,payment-method\n" +
		"A-1,01/15/2024,Books,Dune,3,10,Europe,PayPal\n"

	ds, err := newTestLoader(t).ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, testutil.Date(2024, 1, 15), ds.Rows[0].Date)
	assert.Nil(t, ds.Rows[0].Revenue)
	assert.Equal(t, 30.0, ds.Rows[0].EffectiveRevenue())
}

func TestLoader_LoadCSVFile(t *testing.T) {
	path := testutil.MustWriteSalesCSV(t)

	ds, err := newTestLoader(t).Load(context.Background(), path)
	require.NoError(t, err)

	fixtures := testutil.NewSalesFixtures("")
	assert.Equal(t, fixtures.Rows(), ds.Rows)
	assert.Equal(t, path, ds.Source)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	_, err := newTestLoader(t).Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	f := testutil.NewSalesFixtures(dir)
	rows := f.Rows()

	older, err := f.WriteCSV("2024-01.csv", f.CSVRecords(rows[:2]))
	require.NoError(t, err)
	newer, err := f.WriteCSV("2024-02.csv", f.CSVRecords(rows))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	ds, err := newTestLoader(t).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, newer, ds.Source)
	assert.Len(t, ds.Rows, len(rows))

	_, err = newTestLoader(t).Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "" {
		require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	} else {
		sheet = f.GetSheetName(0)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoader_LoadXLSX(t *testing.T) {
	path := writeWorkbook(t, "Sales", [][]interface{}{
		{"Transaction ID", "Date", "Product Category", "Product Name", "Units Sold", "Unit Price", "Total Revenue", "Region", "Payment Method"},
		{10001, "2024-01-01", "Electronics", "iPhone 14 Pro", 2, 999.99, 1999.98, "North America", "Credit Card"},
		{10002, "2024-01-02", "Clothing", "Levi's 501 Jeans", 3, 69.99, nil, "Asia", "Debit Card"},
	})

	ds, err := newTestLoader(t, WithSheet("Sales")).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, ds.Format)
	assert.Equal(t, "Sales", ds.Sheet)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "10001", ds.Rows[0].OrderID)
	assert.Equal(t, testutil.Date(2024, 1, 1), ds.Rows[0].Date)
	assert.Equal(t, 2, ds.Rows[0].UnitsSold)
	require.NotNil(t, ds.Rows[0].Revenue)
	assert.InDelta(t, 1999.98, *ds.Rows[0].Revenue, 1e-9)
	assert.Nil(t, ds.Rows[1].Revenue)
}

func TestLoader_LoadXLSXUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, "", [][]interface{}{{"Date"}})

	_, err := newTestLoader(t, WithSheet("Missing")).Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestLoader_ContextCancelled(t *testing.T) {
	var b strings.Builder
	b.WriteString("Transaction ID,Date,Product Category,Product Name,Units Sold,Unit Price,Total Revenue,Region,Payment Method\n")
	for i := 0; i < 3*ctxCheckInterval; i++ {
		b.WriteString("1,2024-01-01,A,B,1,1,1,R,P\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(t).ReadCSV(ctx, strings.NewReader(b.String()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_RowsFeedAnalytics(t *testing.T) {
	ds, err := newTestLoader(t).ReadCSV(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)

	report, err := analytics.ComputeKPIs(ds.Rows, analytics.FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.RecordCount)
	assert.InDelta(t, 1999.98+499.99, report.TotalRevenue, 1e-9)
}
