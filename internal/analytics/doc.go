// Package analytics implements the sales filter engine and KPI aggregator.
//
// The package is a pure transform over an in-memory row set:
//
//	rows + FilterSpec -> ApplyFilters -> FilterResult
//	rows + FilterSpec -> ComputeKPIs  -> KPIReport
//
// Both operations validate the FilterSpec before touching any row and return a
// *ValidationError naming the offending key when a bound is malformed. Neither
// operation mutates its input, so a single dataset can be shared by concurrent
// callers without locking.
//
// ComputeKPIs evaluates the filter predicate and the aggregation in one pass.
// Working memory is bounded by the number of distinct categories, regions,
// products and order ids, never by the number of rows.
//
// Every ratio in a KPIReport goes through ratio, which returns zero for a zero
// denominator. A report therefore never carries NaN or Inf and always
// serializes to JSON.
package analytics
