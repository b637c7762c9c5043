package analytics

// ComputeKPIs filters rows by spec and aggregates the matches in one pass.
// An empty match set yields a zeroed report with empty lists. Stored revenue
// is authoritative; units*price is only used for rows without one.
func (e *Engine) ComputeKPIs(rows []Row, spec FilterSpec) (KPIReport, error) {
	m, err := compile(spec)
	if err != nil {
		return KPIReport{}, err
	}

	var (
		totalRevenue float64
		totalUnits   int64
		priceSum     float64
		records      int
		orders       = make(map[string]struct{})
		byCategory   = newAccumulator[string]()
		byRegion     = newAccumulator[string]()
		byProduct    = newAccumulator[string]()
	)

	for _, r := range rows {
		if !m.match(r) {
			continue
		}
		revenue := r.EffectiveRevenue()

		records++
		totalRevenue += revenue
		totalUnits += int64(r.UnitsSold)
		priceSum += r.UnitPrice
		if r.OrderID != "" {
			orders[r.OrderID] = struct{}{}
		}

		byCategory.add(r.Category, revenue, r.UnitsSold)
		byRegion.add(r.Region, revenue, r.UnitsSold)
		byProduct.add(r.ProductName, revenue, r.UnitsSold)
	}

	report := KPIReport{
		AppliedFilters:       spec,
		TotalRevenue:         totalRevenue,
		TotalUnits:           totalUnits,
		OrderCount:           len(orders),
		RecordCount:          records,
		AvgRevenuePerOrder:   ratio(totalRevenue, float64(len(orders))),
		AvgUnitPriceWeighted: ratio(totalRevenue, float64(totalUnits)),
		AvgUnitPriceSimple:   ratio(priceSum, float64(records)),
		BreakdownByCategory:  breakdown(byCategory, totalRevenue),
		BreakdownByRegion:    breakdown(byRegion, totalRevenue),
		TopProducts:          topProducts(byProduct, e.settings.topN),
	}
	return report, nil
}

func breakdown(acc *accumulator[string], total float64) []GroupMetric {
	entries := acc.sorted()
	out := make([]GroupMetric, 0, len(entries))
	for _, en := range entries {
		out = append(out, GroupMetric{
			Label:       en.key,
			Revenue:     en.revenue,
			Share:       ratio(en.revenue, total),
			UnitsSold:   en.units,
			RecordCount: en.records,
		})
	}
	return out
}

func topProducts(acc *accumulator[string], n int) []ProductMetric {
	entries := acc.sorted()
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]ProductMetric, 0, len(entries))
	for _, en := range entries {
		out = append(out, ProductMetric{
			ProductName: en.key,
			Revenue:     en.revenue,
			UnitsSold:   en.units,
			RecordCount: en.records,
		})
	}
	return out
}
