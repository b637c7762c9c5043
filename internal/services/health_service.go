package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"salespulse/internal/infrastructure"
)

// DatasetSource reports the dataset the service is serving.
type DatasetSource interface {
	DatasetInfo(ctx context.Context) *DatasetInfo
	InsightsEnabled() bool
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	source    DatasetSource
	runtime   *infrastructure.RuntimeCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	DatasetRows   int     `json:"dataset_rows"`
	DatasetPath   string  `json:"dataset_path"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	GCCount       uint32  `json:"gc_count"`
	GoVersion     string  `json:"go_version"`
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
}

// HealthOption configures a HealthService.
type HealthOption func(*HealthService)

// WithBuildInfo sets the build time and id reported by Version.
func WithBuildInfo(buildTime, buildID string) HealthOption {
	return func(hs *HealthService) {
		hs.buildTime = buildTime
		hs.buildID = buildID
	}
}

// WithRuntimeCollector reports runtime samples in SystemStats.
func WithRuntimeCollector(c *infrastructure.RuntimeCollector) HealthOption {
	return func(hs *HealthService) { hs.runtime = c }
}

// NewHealthService creates a new health service
func NewHealthService(version string, source DatasetSource, logger *slog.Logger, opts ...HealthOption) *HealthService {
	hs := &HealthService{
		version:   version,
		source:    source,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
	for _, opt := range opts {
		opt(hs)
	}
	return hs
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the dataset is loaded. Insight generation
// is informational and never makes the service unready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"dataset":  hs.checkDatasetHealth(ctx),
			"insights": hs.checkInsightsHealth(),
		},
	}

	if status.Services["dataset"].Status != "ready" {
		status.Status = "not_ready"
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(_ context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.runtime != nil {
		sample := hs.runtime.Last()
		if sample.Timestamp.IsZero() {
			sample = hs.runtime.Collect(ctx)
		}
		stats.Goroutines = sample.Goroutines
		stats.HeapAllocMB = sample.HeapAllocMB
		stats.GCCount = sample.GCCount
	}

	if hs.source != nil {
		info := hs.source.DatasetInfo(ctx)
		stats.DatasetPath = info.Path
		if info.Dataset != nil {
			stats.DatasetRows = len(info.Dataset.Rows)
		}
	}
	return stats
}

func (hs *HealthService) checkDatasetHealth(ctx context.Context) ServiceHealth {
	if hs.source == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset source not configured"}
	}

	info := hs.source.DatasetInfo(ctx)
	if !info.Loaded {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("dataset not loaded: %s", info.Path),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d rows loaded", len(info.Dataset.Rows)),
		Uptime:  time.Since(info.Dataset.LoadedAt).Truncate(time.Second).String(),
	}
}

func (hs *HealthService) checkInsightsHealth() ServiceHealth {
	if hs.source != nil && hs.source.InsightsEnabled() {
		return ServiceHealth{Status: "ready", Message: "completion API configured"}
	}
	return ServiceHealth{Status: "disabled", Message: "OPENAI_API_KEY not set"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
	}
}
