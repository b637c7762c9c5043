package http

import (
	"context"

	"salespulse/internal/analytics"
	"salespulse/internal/dataprocessing"
	"salespulse/internal/insights"
	"salespulse/internal/services"
)

// SalesServiceInterface defines the sales operations exposed over HTTP.
// *services.SalesService implements it.
type SalesServiceInterface interface {
	Filter(ctx context.Context, spec analytics.FilterSpec, limit int) (*services.FilterResponse, error)
	KPIs(ctx context.Context, spec analytics.FilterSpec, topN int) (*analytics.KPIReport, error)
	Insights(ctx context.Context, in services.InsightsInput) (*insights.Report, error)
	Reload(ctx context.Context) (*dataprocessing.Dataset, error)
	DatasetInfo(ctx context.Context) *services.DatasetInfo
}

// HealthServiceInterface defines the health probes. *services.HealthService
// implements it.
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
	GetDetailedHealth(ctx context.Context) map[string]interface{}
}
