package infrastructure

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time view of the Go runtime.
type RuntimeStats struct {
	Goroutines    int       `json:"goroutines"`
	HeapAllocMB   float64   `json:"heap_alloc_mb"`
	SysMB         float64   `json:"sys_mb"`
	GCCount       uint32    `json:"gc_count"`
	LastGCPauseMS float64   `json:"last_gc_pause_ms"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// RuntimeCollector samples runtime statistics on an interval and records
// them as gauges.
type RuntimeCollector struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	uptime     metric.Float64Gauge
	gcPause    metric.Float64Histogram

	startTime time.Time
	interval  time.Duration

	mu     sync.RWMutex
	last   RuntimeStats
	lastGC uint32
}

// NewRuntimeCollector registers the runtime gauges on meter.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	goroutines, err := meter.Int64Gauge("runtime_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge("runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge("runtime_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram("runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &RuntimeCollector{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		uptime:     uptime,
		gcPause:    gcPause,
		startTime:  time.Now(),
		interval:   interval,
	}, nil
}

// Collect samples the runtime once and records the gauges.
func (c *RuntimeCollector) Collect(ctx context.Context) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1 << 20),
		SysMB:         float64(mem.Sys) / (1 << 20),
		GCCount:       mem.NumGC,
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Timestamp:     time.Now().UTC(),
	}
	if mem.NumGC > 0 {
		pause := time.Duration(mem.PauseNs[(mem.NumGC+255)%256])
		stats.LastGCPauseMS = float64(pause) / float64(time.Millisecond)
	}

	c.goroutines.Record(ctx, int64(stats.Goroutines))
	c.heapAlloc.Record(ctx, int64(mem.HeapAlloc))
	c.uptime.Record(ctx, stats.UptimeSeconds)

	c.mu.Lock()
	if mem.NumGC > c.lastGC && stats.LastGCPauseMS > 0 {
		c.gcPause.Record(ctx, stats.LastGCPauseMS/1000)
	}
	c.lastGC = mem.NumGC
	c.last = stats
	c.mu.Unlock()

	return stats
}

// Start collects until ctx is done.
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Last returns the most recent sample without collecting.
func (c *RuntimeCollector) Last() RuntimeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
