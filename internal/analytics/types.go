package analytics

import (
	"encoding/json"
	"time"
)

// Row is one sales transaction line.
type Row struct {
	Date          time.Time `json:"date"`
	OrderID       string    `json:"order_id"`
	Region        string    `json:"region"`
	Category      string    `json:"category"`
	ProductName   string    `json:"product_name"`
	PaymentMethod string    `json:"payment_method"`
	UnitsSold     int       `json:"units_sold"`
	UnitPrice     float64   `json:"unit_price"`
	// Revenue is nil when the source carried no revenue value.
	Revenue *float64 `json:"revenue,omitempty"`
}

// EffectiveRevenue returns the stored revenue, or units*price when none was stored.
func (r Row) EffectiveRevenue() float64 {
	if r.Revenue != nil {
		return *r.Revenue
	}
	return float64(r.UnitsSold) * r.UnitPrice
}

// HasDate reports whether the row carries a transaction date.
func (r Row) HasDate() bool {
	return !r.Date.IsZero()
}

// MarshalJSON writes every preview column. The date is YYYY-MM-DD, or null
// when absent; revenue is the effective revenue, so rows without a stored
// value still show what the KPIs count for them.
func (r Row) MarshalJSON() ([]byte, error) {
	type alias Row
	var date *string
	if r.HasDate() {
		d := r.Date.Format(DateLayout)
		date = &d
	}
	return json.Marshal(struct {
		Date    *string `json:"date"`
		Revenue float64 `json:"revenue"`
		alias
	}{Date: date, Revenue: r.EffectiveRevenue(), alias: alias(r)})
}

// Float64 returns a pointer to v. Handy for populating Row.Revenue and FilterSpec bounds.
func Float64(v float64) *float64 {
	return &v
}

// FilterResult is the output of ApplyFilters.
type FilterResult struct {
	Matched []Row `json:"-"`
	Count   int   `json:"row_count"`
	Preview []Row `json:"preview"`
}

// KPIReport is the aggregate over a filtered row set.
type KPIReport struct {
	AppliedFilters FilterSpec `json:"applied_filters"`

	TotalRevenue float64 `json:"total_revenue"`
	TotalUnits   int64   `json:"total_units"`
	OrderCount   int     `json:"order_count"`
	RecordCount  int     `json:"record_count"`

	AvgRevenuePerOrder   float64 `json:"avg_revenue_per_order"`
	AvgUnitPriceWeighted float64 `json:"avg_unit_price_weighted"`
	AvgUnitPriceSimple   float64 `json:"avg_unit_price_simple"`

	BreakdownByCategory []GroupMetric   `json:"breakdown_by_category"`
	BreakdownByRegion   []GroupMetric   `json:"breakdown_by_region"`
	TopProducts         []ProductMetric `json:"top_products"`
}

// GroupMetric is one entry of a categorical breakdown.
type GroupMetric struct {
	Label       string  `json:"label"`
	Revenue     float64 `json:"revenue"`
	Share       float64 `json:"share_of_total_revenue"`
	UnitsSold   int64   `json:"units_sold"`
	RecordCount int     `json:"record_count"`
}

// ProductMetric is one entry of the top products ranking.
type ProductMetric struct {
	ProductName string  `json:"product_name"`
	Revenue     float64 `json:"revenue"`
	UnitsSold   int64   `json:"units_sold"`
	RecordCount int     `json:"record_count"`
}
