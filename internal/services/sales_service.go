package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salespulse/internal/analytics"
	"salespulse/internal/config"
	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	"salespulse/internal/insights"
)

// PreviewColumns are the keys of each preview row.
var PreviewColumns = []string{
	"date", "order_id", "region", "category", "product_name",
	"payment_method", "units_sold", "unit_price", "revenue",
}

// maxTopN bounds the top_n parameter.
const maxTopN = 1000

// FilterResponse is the result of a filter request.
type FilterResponse struct {
	RowCount int             `json:"row_count"`
	Columns  []string        `json:"columns"`
	Preview  []analytics.Row `json:"preview"`
}

// InsightsInput asks for a narrative. When KPIs is empty the report is
// computed from Filters first.
type InsightsInput struct {
	KPIs     json.RawMessage
	Filters  analytics.FilterSpec
	Question string
}

// DatasetInfo describes the active dataset.
type DatasetInfo struct {
	Loaded  bool                    `json:"loaded"`
	Path    string                  `json:"path"`
	Dataset *dataprocessing.Dataset `json:"dataset,omitempty"`
}

// SalesService runs filter, KPI and insight requests against the shared
// dataset.
type SalesService struct {
	store      *DatasetStore
	engine     *analytics.Engine
	generator  insights.Generator
	maxPreview int
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
}

// SalesServiceOption configures a SalesService.
type SalesServiceOption func(*SalesService)

// WithGenerator installs the insight generator. Without one, insight
// requests fail with ErrInsightsDisabled.
func WithGenerator(g insights.Generator) SalesServiceOption {
	return func(s *SalesService) { s.generator = g }
}

// WithMaxPreview bounds the limit accepted by Filter.
func WithMaxPreview(n int) SalesServiceOption {
	return func(s *SalesService) {
		if n > 0 {
			s.maxPreview = n
		}
	}
}

// WithBusinessMetrics records request metrics.
func WithBusinessMetrics(m *infrastructure.BusinessMetrics) SalesServiceOption {
	return func(s *SalesService) { s.metrics = m }
}

// NewSalesService creates the service.
func NewSalesService(store *DatasetStore, engine *analytics.Engine, logger *slog.Logger, opts ...SalesServiceOption) *SalesService {
	if engine == nil {
		engine = analytics.NewEngine()
	}
	s := &SalesService{
		store:      store,
		engine:     engine,
		maxPreview: config.MaxPreviewLimit,
		logger:     infrastructure.WithComponent(logger, "sales_service"),
		tracer:     otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsightsEnabled reports whether insight requests can succeed.
func (s *SalesService) InsightsEnabled() bool {
	if s.generator == nil {
		return false
	}
	if e, ok := s.generator.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

// Filter applies spec and returns the match count plus up to limit rows.
// A zero limit uses the engine's preview size.
func (s *SalesService) Filter(ctx context.Context, spec analytics.FilterSpec, limit int) (*FilterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "sales.filter")
	defer span.End()

	if limit < 0 || limit > s.maxPreview {
		err := &analytics.ValidationError{Key: "limit", Reason: fmt.Sprintf("must be between 1 and %d", s.maxPreview)}
		s.recordValidation(ctx, span, err)
		return nil, err
	}

	ds, err := s.store.Get(ctx)
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	engine := s.engine
	if limit > 0 {
		engine = engine.With(analytics.WithPreviewSize(limit))
	}

	result, err := engine.ApplyFilters(ds.Rows, spec)
	s.metrics.RecordFilter(ctx, len(ds.Rows), err)
	if err != nil {
		s.recordValidation(ctx, span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sales.rows_scanned", len(ds.Rows)),
		attribute.Int("sales.rows_matched", result.Count))

	s.logger.DebugContext(ctx, "filter applied",
		slog.Int("rows_scanned", len(ds.Rows)),
		slog.Int("rows_matched", result.Count),
		slog.Int("preview", len(result.Preview)))

	return &FilterResponse{
		RowCount: result.Count,
		Columns:  PreviewColumns,
		Preview:  result.Preview,
	}, nil
}

// KPIs computes the report for spec. A zero topN uses the engine default.
func (s *SalesService) KPIs(ctx context.Context, spec analytics.FilterSpec, topN int) (*analytics.KPIReport, error) {
	ctx, span := s.tracer.Start(ctx, "sales.kpis")
	defer span.End()

	if topN < 0 || topN > maxTopN {
		err := &analytics.ValidationError{Key: "top_n", Reason: fmt.Sprintf("must be between 1 and %d", maxTopN)}
		s.recordValidation(ctx, span, err)
		return nil, err
	}

	ds, err := s.store.Get(ctx)
	if err != nil {
		s.fail(span, err)
		return nil, err
	}

	engine := s.engine
	if topN > 0 {
		engine = engine.With(analytics.WithTopN(topN))
	}

	start := time.Now()
	report, err := engine.ComputeKPIs(ds.Rows, spec)
	duration := time.Since(start)
	s.metrics.RecordKPI(ctx, len(ds.Rows), duration, err)
	if err != nil {
		s.recordValidation(ctx, span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sales.rows_scanned", len(ds.Rows)),
		attribute.Int("sales.record_count", report.RecordCount))

	s.logger.InfoContext(ctx, "kpis computed",
		slog.Int("rows_scanned", len(ds.Rows)),
		slog.Int("record_count", report.RecordCount),
		slog.Int("order_count", report.OrderCount),
		slog.Duration("duration", duration))

	return &report, nil
}

// Insights returns a narrative for in.KPIs, computing them from in.Filters
// when absent.
func (s *SalesService) Insights(ctx context.Context, in InsightsInput) (*insights.Report, error) {
	ctx, span := s.tracer.Start(ctx, "sales.insights")
	defer span.End()

	if !s.InsightsEnabled() {
		return nil, ErrInsightsDisabled
	}

	kpis := bytes.TrimSpace(in.KPIs)
	if len(kpis) == 0 || bytes.Equal(kpis, []byte("null")) {
		report, err := s.KPIs(ctx, in.Filters, 0)
		if err != nil {
			return nil, err
		}
		kpis, err = json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to encode kpis: %w", err)
		}
	} else if kpis[0] != '{' || !json.Valid(kpis) {
		err := &analytics.ValidationError{Key: "kpis", Reason: "must be a JSON object"}
		s.recordValidation(ctx, span, err)
		return nil, err
	}

	report, err := s.generator.Generate(ctx, insights.Request{KPIs: kpis, Question: in.Question})
	if err != nil {
		s.fail(span, err)
		switch {
		case errors.Is(err, insights.ErrDisabled):
			return nil, ErrInsightsDisabled
		case apperrors.IsType(err, apperrors.ErrTypeValidation):
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
		}
	}
	return report, nil
}

// Reload re-reads the dataset from disk.
func (s *SalesService) Reload(ctx context.Context) (*dataprocessing.Dataset, error) {
	ds, err := s.store.Reload(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "dataset reloaded",
		slog.String("path", ds.Source),
		slog.Int("rows", ds.Stats.Rows))
	return ds, nil
}

// DatasetInfo describes the active dataset without triggering a load.
func (s *SalesService) DatasetInfo(_ context.Context) *DatasetInfo {
	ds := s.store.Current()
	return &DatasetInfo{
		Loaded:  ds != nil,
		Path:    s.store.Path(),
		Dataset: ds,
	}
}

// Rows returns the loaded rows, loading the dataset if needed. Exporters
// and the CLI read through this.
func (s *SalesService) Rows(ctx context.Context) ([]analytics.Row, error) {
	ds, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Rows, nil
}

func (s *SalesService) recordValidation(ctx context.Context, span trace.Span, err error) {
	var vErr *analytics.ValidationError
	if errors.As(err, &vErr) {
		s.metrics.RecordValidationFailure(ctx, vErr.Key)
		s.logger.WarnContext(ctx, "request rejected",
			slog.String("field", vErr.Key),
			slog.String("reason", vErr.Reason))
	}
	s.fail(span, err)
}

func (s *SalesService) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
