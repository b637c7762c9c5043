package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	ConfigFileEnv,
	"CSV_PATH", "SALES_DATASET_CSV_PATH", "SALES_DATASET_SHEET",
	"OPENAI_API_KEY", "SALES_INSIGHTS_OPENAI_API_KEY",
	"OPENAI_MODEL", "SALES_INSIGHTS_OPENAI_MODEL",
	"OPENAI_TEMPERATURE", "SALES_INSIGHTS_OPENAI_TEMPERATURE",
	"OPENAI_BASE_URL", "SALES_INSIGHTS_OPENAI_BASE_URL",
	"SALES_SERVER_PORT", "SALES_ENGINE_TOP_N", "SALES_ENGINE_PREVIEW_SIZE",
	"SALES_LOGGING_OUTPUT", "SALES_SECURITY_ALLOWED_ORIGINS", "SALES_SECURITY_API_KEYS", "API_KEYS",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, DefaultRequestTimeout, cfg.Server.RequestTimeout)
				assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
				assert.Equal(t, DefaultPreviewSize, cfg.Engine.PreviewSize)
				assert.Equal(t, MaxPreviewLimit, cfg.Engine.MaxPreview)
				assert.Equal(t, DefaultTopN, cfg.Engine.TopN)
				assert.Equal(t, DefaultModel, cfg.Insights.Model)
				assert.Equal(t, 0.2, cfg.Insights.Temperature)
				assert.Equal(t, 700, cfg.Insights.MaxOutputTokens)
				assert.Equal(t, 3, cfg.Insights.MaxAttempts)
				assert.Equal(t, 10*time.Minute, cfg.Insights.CacheTTL)
				assert.False(t, cfg.Insights.Enabled())
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "prefixed environment variables",
			env: map[string]string{
				"SALES_SERVER_PORT":              "9090",
				"SALES_ENGINE_TOP_N":             "10",
				"SALES_DATASET_CSV_PATH":         "/srv/sales.csv",
				"SALES_INSIGHTS_OPENAI_API_KEY":  "sk-prefixed",
				"SALES_SECURITY_ALLOWED_ORIGINS": "http://a.example,http://b.example",
				"SALES_SECURITY_API_KEYS":        "k-ops:ops,k-bi:dashboard",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 10, cfg.Engine.TopN)
				assert.Equal(t, "/srv/sales.csv", cfg.Dataset.Path)
				assert.Equal(t, "sk-prefixed", cfg.Insights.APIKey)
				assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, map[string]string{"k-ops": "ops", "k-bi": "dashboard"}, cfg.Security.APIKeys)
			},
		},
		{
			name: "legacy variable names",
			env: map[string]string{
				"CSV_PATH":           "/legacy/Online Sales Data.csv",
				"OPENAI_API_KEY":     "sk-legacy",
				"OPENAI_MODEL":       "gpt-4.1-mini",
				"OPENAI_TEMPERATURE": "0.5",
				"OPENAI_BASE_URL":    "http://localhost:11434/v1",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/legacy/Online Sales Data.csv", cfg.Dataset.Path)
				assert.Equal(t, "sk-legacy", cfg.Insights.APIKey)
				assert.Equal(t, "gpt-4.1-mini", cfg.Insights.Model)
				assert.Equal(t, 0.5, cfg.Insights.Temperature)
				assert.Equal(t, "http://localhost:11434/v1", cfg.Insights.BaseURL)
				assert.True(t, cfg.Insights.Enabled())
			},
		},
		{
			name: "prefixed name wins over legacy name",
			env: map[string]string{
				"OPENAI_MODEL":                "legacy-model",
				"SALES_INSIGHTS_OPENAI_MODEL": "prefixed-model",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "prefixed-model", cfg.Insights.Model)
			},
		},
		{
			name: "file overrides defaults and env overrides file",
			file: `
server:
  port: 7070
engine:
  top_n: 3
  preview_size: 25
dataset:
  path: /from/file.xlsx
  sheet: Sales
`,
			env: map[string]string{"SALES_ENGINE_TOP_N": "8"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 8, cfg.Engine.TopN)
				assert.Equal(t, 25, cfg.Engine.PreviewSize)
				assert.Equal(t, "/from/file.xlsx", cfg.Dataset.Path)
				assert.Equal(t, "Sales", cfg.Dataset.Sheet)
				assert.Equal(t, DefaultModel, cfg.Insights.Model)
			},
		},
		{
			name:    "invalid port from env",
			env:     map[string]string{"SALES_SERVER_PORT": "70000"},
			wantErr: "invalid server port",
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"SALES_ENGINE_TOP_N": "many"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "malformed yaml",
			file:    "server: [unclosed",
			wantErr: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadUsesConfigFileEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "engine:\n  top_n: 7\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.TopN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "request timeout"},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed origin"},
		{"cors disabled without origins", func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}, ""},
		{"bad rate limit", func(c *Config) { c.Security.RateLimit.RPS = 0 }, "rate limit"},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }, "invalid logging output"},
		{"empty dataset path", func(c *Config) { c.Dataset.Path = "" }, "dataset path"},
		{"preview above max", func(c *Config) { c.Engine.PreviewSize = MaxPreviewLimit + 1 }, "preview_size"},
		{"max preview above limit", func(c *Config) { c.Engine.MaxPreview = MaxPreviewLimit + 1 }, "max_preview"},
		{"zero top n", func(c *Config) { c.Engine.TopN = 0 }, "top_n"},
		{"temperature too high", func(c *Config) { c.Insights.Temperature = 2.5 }, "temperature"},
		{"zero attempts", func(c *Config) { c.Insights.MaxAttempts = 0 }, "max_attempts"},
		{"unknown trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "otlp" }, "trace exporter"},
		{"unknown metric exporter", func(c *Config) { c.Telemetry.MetricExporter = "statsd" }, "metric exporter"},
		{"sample ratio out of range", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, "sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "BOTH"
	cfg.Logging.FilePath = ""
	cfg.Logging.Format = "text"
	cfg.Telemetry.TraceExporter = "STDOUT"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "sales.csv")

	assert.Equal(t, "", ResolvePath(""))
	assert.Equal(t, abs, ResolvePath(abs))
	assert.Equal(t, "does/not/exist.csv", ResolvePath("does/not/exist.csv"))
	assert.Equal(t, "config.go", ResolvePath("config.go"))
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.ListenAddr())

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
}
