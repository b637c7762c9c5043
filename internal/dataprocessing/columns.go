package dataprocessing

import (
	"strings"
)

// Column identifies a logical sales column regardless of its header spelling.
type Column int

const (
	ColDate Column = iota
	ColOrderID
	ColRegion
	ColCategory
	ColProductName
	ColPaymentMethod
	ColUnitsSold
	ColUnitPrice
	ColRevenue
	numColumns
)

var columnNames = [numColumns]string{
	ColDate:          "Date",
	ColOrderID:       "Transaction ID",
	ColRegion:        "Region",
	ColCategory:      "Product Category",
	ColProductName:   "Product Name",
	ColPaymentMethod: "Payment Method",
	ColUnitsSold:     "Units Sold",
	ColUnitPrice:     "Unit Price",
	ColRevenue:       "Total Revenue",
}

// String returns the canonical header for c.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return "unknown"
	}
	return columnNames[c]
}

// headerAliases maps normalized header text to its column.
var headerAliases = map[string]Column{
	"date":             ColDate,
	"order date":       ColDate,
	"transaction date": ColDate,
	"transaction id":   ColOrderID,
	"order id":         ColOrderID,
	"region":           ColRegion,
	"product category": ColCategory,
	"category":         ColCategory,
	"product name":     ColProductName,
	"product":          ColProductName,
	"payment method":   ColPaymentMethod,
	"units sold":       ColUnitsSold,
	"quantity":         ColUnitsSold,
	"unit price":       ColUnitPrice,
	"price":            ColUnitPrice,
	"total revenue":    ColRevenue,
	"revenue":          ColRevenue,
}

// optionalColumns may be absent; rows then carry no stored revenue.
var optionalColumns = map[Column]bool{ColRevenue: true}

// columnMap holds the source index of each logical column, -1 when absent.
type columnMap [numColumns]int

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// mapColumns resolves header cells to columns. The first occurrence of a
// column wins. It returns the canonical names of required columns not found.
func mapColumns(header []string) (columnMap, []string) {
	var cm columnMap
	for i := range cm {
		cm[i] = -1
	}

	for idx, cell := range header {
		col, ok := headerAliases[normalizeHeader(cell)]
		if ok && cm[col] == -1 {
			cm[col] = idx
		}
	}

	var missing []string
	for col := Column(0); col < numColumns; col++ {
		if cm[col] == -1 && !optionalColumns[col] {
			missing = append(missing, col.String())
		}
	}
	return cm, missing
}

// cell returns the trimmed value for col, or "" when absent or short.
func (cm columnMap) cell(record []string, col Column) string {
	idx := cm[col]
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
