package analytics

import (
	"cmp"
	"math"
	"slices"
)

// ratio returns num/den, or 0 when den is zero or the quotient is not finite.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type totals struct {
	revenue float64
	units   int64
	records int
}

// accumulator sums revenue, units and record counts per key.
type accumulator[K cmp.Ordered] struct {
	byKey map[K]*totals
}

func newAccumulator[K cmp.Ordered]() *accumulator[K] {
	return &accumulator[K]{byKey: make(map[K]*totals)}
}

func (a *accumulator[K]) add(key K, revenue float64, units int) {
	t, ok := a.byKey[key]
	if !ok {
		t = &totals{}
		a.byKey[key] = t
	}
	t.revenue += revenue
	t.units += int64(units)
	t.records++
}

type entry[K cmp.Ordered] struct {
	key K
	totals
}

// sorted returns the entries by revenue descending, ties broken by key
// ascending, so output is deterministic.
func (a *accumulator[K]) sorted() []entry[K] {
	out := make([]entry[K], 0, len(a.byKey))
	for k, t := range a.byKey {
		out = append(out, entry[K]{key: k, totals: *t})
	}
	slices.SortFunc(out, func(x, y entry[K]) int {
		if c := cmp.Compare(y.revenue, x.revenue); c != 0 {
			return c
		}
		return cmp.Compare(x.key, y.key)
	})
	return out
}
