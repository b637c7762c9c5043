package analytics

// Defaults for the engine constants.
const (
	DefaultPreviewSize = 10
	DefaultTopN        = 5
)

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	previewSize int
	topN        int
}

// WithPreviewSize sets how many matched rows ApplyFilters returns as a preview.
// Non-positive values keep the default.
func WithPreviewSize(k int) Option {
	return func(s *settings) {
		if k > 0 {
			s.previewSize = k
		}
	}
}

// WithTopN sets the length of the top products ranking. Non-positive values
// keep the default.
func WithTopN(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{
		previewSize: DefaultPreviewSize,
		topN:        DefaultTopN,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Engine runs filters and aggregations with fixed settings. The zero value is
// not usable; build one with NewEngine. An Engine is immutable and safe for
// concurrent use.
type Engine struct {
	settings settings
}

// NewEngine creates an engine with the given options applied over the defaults.
func NewEngine(opts ...Option) *Engine {
	return &Engine{settings: applyOptions(opts)}
}

// PreviewSize returns the configured preview length.
func (e *Engine) PreviewSize() int { return e.settings.previewSize }

// TopN returns the configured top products length.
func (e *Engine) TopN() int { return e.settings.topN }

// With returns a copy of the engine with extra options applied.
func (e *Engine) With(opts ...Option) *Engine {
	s := e.settings
	for _, opt := range opts {
		opt(&s)
	}
	return &Engine{settings: s}
}

var defaultEngine = NewEngine()

// ApplyFilters runs the filter engine with default settings.
func ApplyFilters(rows []Row, spec FilterSpec) (FilterResult, error) {
	return defaultEngine.ApplyFilters(rows, spec)
}

// ComputeKPIs runs the KPI aggregator with default settings.
func ComputeKPIs(rows []Row, spec FilterSpec) (KPIReport, error) {
	return defaultEngine.ComputeKPIs(rows, spec)
}
