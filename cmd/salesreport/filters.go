package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"salespulse/internal/analytics"
)

// filterFlags collects the filter options shared by the query commands.
// Values go through the same parser as API requests.
type filterFlags struct {
	categories []string
	regions    []string
	payments   []string
	product    string
	minRevenue string
	maxRevenue string
	from       string
	to         string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&f.categories, "category", nil, "product category (repeatable, any-of)")
	flags.StringSliceVar(&f.regions, "region", nil, "region (repeatable, any-of)")
	flags.StringSliceVar(&f.payments, "payment", nil, "payment method (repeatable, any-of)")
	flags.StringVar(&f.product, "product", "", "product name substring")
	flags.StringVar(&f.minRevenue, "min-revenue", "", "minimum row revenue")
	flags.StringVar(&f.maxRevenue, "max-revenue", "", "maximum row revenue")
	flags.StringVar(&f.from, "from", "", "first day, YYYY-MM-DD")
	flags.StringVar(&f.to, "to", "", "last day, YYYY-MM-DD")
}

func (f *filterFlags) spec() (analytics.FilterSpec, error) {
	raw := map[string]interface{}{}
	if len(f.categories) > 0 {
		raw[analytics.KeyCategory] = f.categories
	}
	if len(f.regions) > 0 {
		raw[analytics.KeyRegion] = f.regions
	}
	if len(f.payments) > 0 {
		raw[analytics.KeyPaymentMethod] = f.payments
	}
	if f.product != "" {
		raw[analytics.KeyProductNameContains] = f.product
	}
	if f.minRevenue != "" {
		raw[analytics.KeyMinRevenue] = f.minRevenue
	}
	if f.maxRevenue != "" {
		raw[analytics.KeyMaxRevenue] = f.maxRevenue
	}
	if f.from != "" {
		raw[analytics.KeyDateFrom] = f.from
	}
	if f.to != "" {
		raw[analytics.KeyDateTo] = f.to
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return analytics.FilterSpec{}, err
	}
	return analytics.ParseFilterSpec(data)
}
