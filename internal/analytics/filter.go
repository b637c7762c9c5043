package analytics

import (
	"strings"
	"time"
)

// matcher is a compiled FilterSpec. Label sets are lowercased once so the per
// row check is a map lookup.
type matcher struct {
	categories map[string]struct{}
	regions    map[string]struct{}
	payments   map[string]struct{}
	nameNeedle string
	minRevenue *float64
	maxRevenue *float64
	dateFrom   *time.Time
	dateTo     *time.Time
}

func compile(spec FilterSpec) (*matcher, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	m := &matcher{
		categories: labelSet(spec.Category),
		regions:    labelSet(spec.Region),
		payments:   labelSet(spec.PaymentMethod),
		nameNeedle: strings.ToLower(strings.TrimSpace(spec.ProductNameContains)),
		minRevenue: spec.MinRevenue,
		maxRevenue: spec.MaxRevenue,
	}
	if spec.DateFrom != nil {
		d := day(*spec.DateFrom)
		m.dateFrom = &d
	}
	if spec.DateTo != nil {
		d := day(*spec.DateTo)
		m.dateTo = &d
	}
	return m, nil
}

func labelSet(labels []string) map[string]struct{} {
	if len(labels) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// match reports whether the row satisfies every present constraint.
func (m *matcher) match(r Row) bool {
	if !inSet(m.categories, r.Category) || !inSet(m.regions, r.Region) || !inSet(m.payments, r.PaymentMethod) {
		return false
	}

	if m.nameNeedle != "" && !strings.Contains(strings.ToLower(r.ProductName), m.nameNeedle) {
		return false
	}

	if m.minRevenue != nil || m.maxRevenue != nil {
		revenue := r.EffectiveRevenue()
		if m.minRevenue != nil && revenue < *m.minRevenue {
			return false
		}
		if m.maxRevenue != nil && revenue > *m.maxRevenue {
			return false
		}
	}

	if m.dateFrom != nil || m.dateTo != nil {
		if !r.HasDate() {
			return false
		}
		d := day(r.Date)
		if m.dateFrom != nil && d.Before(*m.dateFrom) {
			return false
		}
		if m.dateTo != nil && d.After(*m.dateTo) {
			return false
		}
	}

	return true
}

// ApplyFilters returns the rows matching spec in their original order, the
// match count and a preview of the first PreviewSize matches. The input slice
// is never modified.
func (e *Engine) ApplyFilters(rows []Row, spec FilterSpec) (FilterResult, error) {
	m, err := compile(spec)
	if err != nil {
		return FilterResult{}, err
	}

	matched := make([]Row, 0)
	for _, r := range rows {
		if m.match(r) {
			matched = append(matched, r)
		}
	}

	k := min(e.settings.previewSize, len(matched))
	preview := make([]Row, k)
	copy(preview, matched[:k])

	return FilterResult{
		Matched: matched,
		Count:   len(matched),
		Preview: preview,
	}, nil
}

// Count returns only the number of rows matching spec.
func (e *Engine) Count(rows []Row, spec FilterSpec) (int, error) {
	m, err := compile(spec)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		if m.match(r) {
			n++
		}
	}
	return n, nil
}
