package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SALES"

// ConfigFileEnv names an explicit config file, overriding the search list.
const ConfigFileEnv = "SALES_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Engine    EngineConfig    `yaml:"engine" envconfig:"ENGINE"`
	Insights  InsightsConfig  `yaml:"insights" envconfig:"INSIGHTS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	// APIKeys maps accepted keys to client names ("key:client,..." in the
	// environment). Empty leaves the sales API open.
	APIKeys map[string]string `yaml:"api_keys" envconfig:"API_KEYS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DatasetConfig locates the sales export. Path also honours the bare
// CSV_PATH variable.
type DatasetConfig struct {
	Path        string `yaml:"path" envconfig:"CSV_PATH"`
	Sheet       string `yaml:"sheet" envconfig:"SHEET"`
	LoadOnStart bool   `yaml:"load_on_start" envconfig:"LOAD_ON_START"`
}

// EngineConfig tunes the filter engine and KPI aggregator.
type EngineConfig struct {
	PreviewSize int `yaml:"preview_size" envconfig:"PREVIEW_SIZE"`
	MaxPreview  int `yaml:"max_preview" envconfig:"MAX_PREVIEW"`
	TopN        int `yaml:"top_n" envconfig:"TOP_N"`
}

// InsightsConfig configures the completion API. The OPENAI_* names are also
// read without the SALES_INSIGHTS_ prefix.
type InsightsConfig struct {
	APIKey          string        `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	BaseURL         string        `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	Model           string        `yaml:"model" envconfig:"OPENAI_MODEL"`
	Temperature     float64       `yaml:"temperature" envconfig:"OPENAI_TEMPERATURE"`
	MaxOutputTokens int           `yaml:"max_output_tokens" envconfig:"MAX_OUTPUT_TOKENS"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	CacheTTL        time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
}

// Enabled reports whether an API key is configured.
func (c InsightsConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first one found in the search list when path is empty), then
// environment variables. Each layer only overrides what it sets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.Dataset.Path = ResolvePath(cfg.Dataset.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML document at filePath onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and enumerations and normalizes case.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	c.Logging.Output = strings.ToLower(c.Logging.Output)
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q (want console, file or both)", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}
	c.Logging.Format = "json"

	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset path must be set")
	}

	if c.Engine.MaxPreview < 1 || c.Engine.MaxPreview > MaxPreviewLimit {
		return fmt.Errorf("engine max_preview must be between 1 and %d", MaxPreviewLimit)
	}
	if c.Engine.PreviewSize < 1 || c.Engine.PreviewSize > c.Engine.MaxPreview {
		return fmt.Errorf("engine preview_size must be between 1 and %d", c.Engine.MaxPreview)
	}
	if c.Engine.TopN < 1 {
		return fmt.Errorf("engine top_n must be positive")
	}

	if c.Insights.Temperature < 0 || c.Insights.Temperature > 2 {
		return fmt.Errorf("insights temperature must be between 0 and 2")
	}
	if c.Insights.MaxOutputTokens <= 0 || c.Insights.Timeout <= 0 || c.Insights.MaxAttempts <= 0 {
		return fmt.Errorf("insights max_output_tokens, timeout and max_attempts must be positive")
	}

	c.Telemetry.TraceExporter = strings.ToLower(c.Telemetry.TraceExporter)
	c.Telemetry.MetricExporter = strings.ToLower(c.Telemetry.MetricExporter)
	if c.Telemetry.TraceExporter != "stdout" && c.Telemetry.TraceExporter != "none" {
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.MetricExporter != "prometheus" && c.Telemetry.MetricExporter != "none" {
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio must be between 0 and 1")
	}

	return nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ResolvePath returns p unchanged when absolute or present relative to the
// working directory. Otherwise it tries the executable's directory, falling
// back to the working directory form.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), p)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return p
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
			MaxBodyBytes:    1 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Dataset: DatasetConfig{
			Path:        DefaultDatasetPath,
			LoadOnStart: true,
		},
		Engine: EngineConfig{
			PreviewSize: DefaultPreviewSize,
			MaxPreview:  MaxPreviewLimit,
			TopN:        DefaultTopN,
		},
		Insights: InsightsConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           DefaultModel,
			Temperature:     0.2,
			MaxOutputTokens: 700,
			Timeout:         30 * time.Second,
			MaxAttempts:     3,
			CacheTTL:        10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    env,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
