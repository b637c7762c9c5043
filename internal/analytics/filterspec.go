package analytics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Filter keys recognized on the wire.
const (
	KeyCategory            = "category"
	KeyRegion              = "region"
	KeyPaymentMethod       = "payment_method"
	KeyProductNameContains = "product_name_contains"
	KeyMinRevenue          = "min_revenue"
	KeyMaxRevenue          = "max_revenue"
	KeyDateFrom            = "date_from"
	KeyDateTo              = "date_to"
)

// DateLayout is the canonical day format for date bounds.
const DateLayout = "2006-01-02"

// FilterSpec is a sparse set of row constraints. A nil or empty field places
// no constraint on its dimension. Label lists match any of their values.
type FilterSpec struct {
	Category            []string
	Region              []string
	PaymentMethod       []string
	ProductNameContains string
	MinRevenue          *float64
	MaxRevenue          *float64
	DateFrom            *time.Time
	DateTo              *time.Time
}

// IsEmpty reports whether the spec places no constraint at all.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Category) == 0 &&
		len(f.Region) == 0 &&
		len(f.PaymentMethod) == 0 &&
		f.ProductNameContains == "" &&
		f.MinRevenue == nil &&
		f.MaxRevenue == nil &&
		f.DateFrom == nil &&
		f.DateTo == nil
}

// Validate checks values that cannot be rejected by the type system, such as
// non-finite revenue bounds set programmatically.
func (f FilterSpec) Validate() error {
	if err := checkBound(KeyMinRevenue, f.MinRevenue); err != nil {
		return err
	}
	return checkBound(KeyMaxRevenue, f.MaxRevenue)
}

func checkBound(key string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return newValidationError(key, "must be a finite number")
	}
	return nil
}

// ParseFilterSpec decodes a JSON filter object. See FilterSpec.UnmarshalJSON.
func ParseFilterSpec(data []byte) (FilterSpec, error) {
	var spec FilterSpec
	if len(bytes.TrimSpace(data)) == 0 {
		return spec, nil
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return FilterSpec{}, err
	}
	return spec, nil
}

// ParseDate parses a date bound in YYYY-MM-DD or RFC 3339 form and truncates
// it to the calendar day.
func ParseDate(key, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		d := day(t)
		return &d, nil
	}
	return nil, newValidationError(key, "must be a date in YYYY-MM-DD format, got %q", value)
}

// ParseBound parses a revenue bound from its textual form.
func ParseBound(key, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, newValidationError(key, "must be a number, got %q", value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, newValidationError(key, "must be a finite number")
	}
	return &v, nil
}

// UnmarshalJSON decodes a filter object. Unknown keys are ignored and null
// means "absent". Label keys accept a string or a list of strings. Bounds
// accept a JSON number or a numeric string. Any other shape yields a
// *ValidationError naming the key.
func (f *FilterSpec) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = FilterSpec{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return newValidationError("filters", "must be a JSON object")
	}

	var spec FilterSpec
	var err error

	if spec.Category, err = decodeLabels(KeyCategory, raw[KeyCategory]); err != nil {
		return err
	}
	if spec.Region, err = decodeLabels(KeyRegion, raw[KeyRegion]); err != nil {
		return err
	}
	if spec.PaymentMethod, err = decodeLabels(KeyPaymentMethod, raw[KeyPaymentMethod]); err != nil {
		return err
	}
	if spec.ProductNameContains, err = decodeString(KeyProductNameContains, raw[KeyProductNameContains]); err != nil {
		return err
	}
	if spec.MinRevenue, err = decodeBound(KeyMinRevenue, raw[KeyMinRevenue]); err != nil {
		return err
	}
	if spec.MaxRevenue, err = decodeBound(KeyMaxRevenue, raw[KeyMaxRevenue]); err != nil {
		return err
	}
	if spec.DateFrom, err = decodeDate(KeyDateFrom, raw[KeyDateFrom]); err != nil {
		return err
	}
	if spec.DateTo, err = decodeDate(KeyDateTo, raw[KeyDateTo]); err != nil {
		return err
	}

	*f = spec
	return nil
}

// MarshalJSON emits only the constrained keys. A single-valued label list is
// written as a plain string.
func (f FilterSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)

	putLabels := func(key string, labels []string) {
		switch len(labels) {
		case 0:
		case 1:
			out[key] = labels[0]
		default:
			out[key] = labels
		}
	}
	putLabels(KeyCategory, f.Category)
	putLabels(KeyRegion, f.Region)
	putLabels(KeyPaymentMethod, f.PaymentMethod)

	if f.ProductNameContains != "" {
		out[KeyProductNameContains] = f.ProductNameContains
	}
	if f.MinRevenue != nil {
		out[KeyMinRevenue] = *f.MinRevenue
	}
	if f.MaxRevenue != nil {
		out[KeyMaxRevenue] = *f.MaxRevenue
	}
	if f.DateFrom != nil {
		out[KeyDateFrom] = f.DateFrom.Format(DateLayout)
	}
	if f.DateTo != nil {
		out[KeyDateTo] = f.DateTo.Format(DateLayout)
	}

	return json.Marshal(out)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeLabels(key string, raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return normalizeLabels([]string{single}), nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return normalizeLabels(many), nil
	}

	return nil, newValidationError(key, "must be a string or a list of strings")
}

func normalizeLabels(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeString(key string, raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", newValidationError(key, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func decodeBound(key string, raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseBound(key, s)
	}

	return nil, newValidationError(key, "must be a number, got %s", string(bytes.TrimSpace(raw)))
}

func decodeDate(key string, raw json.RawMessage) (*time.Time, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, newValidationError(key, "must be a date string in YYYY-MM-DD format")
	}
	return ParseDate(key, s)
}

// day truncates t to its calendar day in UTC, keeping t's own date fields.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
