package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the HTTP and sales instruments. Its methods are
// nil-safe so components can run without telemetry.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	FilterRequests     metric.Int64Counter
	KPIComputations    metric.Int64Counter
	KPIDuration        metric.Float64Histogram
	RowsScanned        metric.Int64Counter
	InsightRequests    metric.Int64Counter
	InsightDuration    metric.Float64Histogram
	InsightCacheHits   metric.Int64Counter
	DatasetRows        metric.Int64Gauge
	DatasetLoads       metric.Int64Counter
	MCPRequests        metric.Int64Counter
	ValidationFailures metric.Int64Counter
}

// CreateBusinessMetrics registers every instrument on meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	histogram(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	if err == nil {
		m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
			metric.WithDescription("Number of active HTTP requests"))
	}

	counter(&m.FilterRequests, "sales_filter_requests_total", "Filter requests by outcome")
	counter(&m.KPIComputations, "sales_kpi_computations_total", "KPI computations by outcome")
	histogram(&m.KPIDuration, "sales_kpi_duration_seconds", "KPI computation duration in seconds")
	counter(&m.RowsScanned, "sales_rows_scanned_total", "Rows evaluated by the filter engine")
	counter(&m.InsightRequests, "sales_insight_requests_total", "Insight generation requests by outcome")
	histogram(&m.InsightDuration, "sales_insight_duration_seconds", "Insight generation duration in seconds")
	counter(&m.InsightCacheHits, "sales_insight_cache_hits_total", "Insight responses served from cache")
	counter(&m.DatasetLoads, "sales_dataset_loads_total", "Dataset loads by outcome")
	counter(&m.MCPRequests, "sales_mcp_requests_total", "MCP JSON-RPC requests by method")
	counter(&m.ValidationFailures, "sales_filter_validation_failures_total", "Rejected filter specifications by field")
	if err == nil {
		m.DatasetRows, err = meter.Int64Gauge("sales_dataset_rows",
			metric.WithDescription("Rows in the loaded dataset"))
	}

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}
	return attribute.String("outcome", "success")
}

// RecordFilter records one filter request over scanned rows.
func (m *BusinessMetrics) RecordFilter(ctx context.Context, scanned int, err error) {
	if m == nil {
		return
	}
	m.FilterRequests.Add(ctx, 1, metric.WithAttributes(outcome(err)))
	if err == nil {
		m.RowsScanned.Add(ctx, int64(scanned), metric.WithAttributes(attribute.String("operation", "filter")))
	}
}

// RecordKPI records one KPI computation.
func (m *BusinessMetrics) RecordKPI(ctx context.Context, scanned int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(outcome(err))
	m.KPIComputations.Add(ctx, 1, attrs)
	m.KPIDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		m.RowsScanned.Add(ctx, int64(scanned), metric.WithAttributes(attribute.String("operation", "kpis")))
	}
}

// RecordValidationFailure counts a rejected filter field.
func (m *BusinessMetrics) RecordValidationFailure(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.ValidationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// RecordDatasetLoad records a load attempt and, on success, the row count.
func (m *BusinessMetrics) RecordDatasetLoad(ctx context.Context, rows int, err error) {
	if m == nil {
		return
	}
	m.DatasetLoads.Add(ctx, 1, metric.WithAttributes(outcome(err)))
	if err == nil {
		m.DatasetRows.Record(ctx, int64(rows))
	}
}

// RecordMCPRequest counts a JSON-RPC request by method.
func (m *BusinessMetrics) RecordMCPRequest(ctx context.Context, method string, failed bool) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	m.MCPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", status)))
}

// InsightRequest records an insight call. Outcome is "success", "error" or
// "disabled".
func (m *BusinessMetrics) InsightRequest(ctx context.Context, result string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", result))
	m.InsightRequests.Add(ctx, 1, attrs)
	if result != "disabled" {
		m.InsightDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// InsightCacheHit counts a cached insight response.
func (m *BusinessMetrics) InsightCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.InsightCacheHits.Add(ctx, 1)
}
