package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	"salespulse/internal/middleware"
	"salespulse/internal/shared/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Path = testutil.MustWriteSalesCSV(t)
	cfg.Dataset.LoadOnStart = false
	cfg.Telemetry.MetricExporter = "none"
	cfg.Telemetry.TraceExporter = "none"
	cfg.Security.RateLimit.Enabled = false
	cfg.Insights.APIKey = ""
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := testutil.NewTestLogger(t)
	app, err := New(cfg, logger)
	require.NoError(t, err)
	return app
}

func do(t *testing.T, app *Application, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNew(t *testing.T) {
	app := newTestApp(t, nil)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.MCP)
	assert.NotNil(t, app.Metrics)
	assert.Equal(t, app.Config.ListenAddr(), app.Server.Addr)
	assert.Equal(t, config.DefaultTopN, app.Services.Engine.TopN())
	assert.False(t, app.Services.Insights.Enabled())
	assert.Nil(t, app.OTelProviders.PrometheusHTTP)
}

func TestReadinessFollowsDataset(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodGet, "/api/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	app.Preload(context.Background())

	rec = do(t, app, http.MethodGet, "/api/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestPreloadMissingDataset(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Dataset.Path = t.TempDir() + "/missing.csv"
	})

	app.Preload(context.Background())
	assert.Nil(t, app.Services.Store.Current())

	rec := do(t, app, http.MethodPost, "/api/sales/kpis", `{}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATASET_UNAVAILABLE")
}

func TestSalesEndpoints(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("kpis", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/sales/kpis", `{"filters":{"region":"europe"}}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Status string `json:"status"`
			Data   struct {
				RecordCount  int     `json:"record_count"`
				TotalRevenue float64 `json:"total_revenue"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, 2, resp.Data.RecordCount)
		assert.InDelta(t, 899.98, resp.Data.TotalRevenue, 1e-9)
	})

	t.Run("filter", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/sales/filter", `{"filters":{"category":"Electronics"},"limit":1}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"count":3`)
	})

	t.Run("invalid filter", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/sales/kpis", `{"filters":{"min_revenue":"lots"}}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_FILTER")
	})

	t.Run("insights disabled", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/sales/insights", `{"question":"why?"}`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "INSIGHTS_DISABLED")
	})
}

func TestAPIKeyProtectsSalesRoutes(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.APIKeys = map[string]string{"s3cret": "ops"}
	})

	rec := do(t, app, http.MethodPost, "/api/sales/kpis", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/sales/kpis", `{}`, map[string]string{middleware.APIKeyHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMCPEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "filter_sales_data")
	assert.Contains(t, rec.Body.String(), "compute_sales_kpis")
	assert.Contains(t, rec.Body.String(), "generate_insights")

	rec = do(t, app, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRouterCrossCutting(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("request id echoed", func(t *testing.T) {
		rec := do(t, app, http.MethodGet, "/api/health", "", map[string]string{middleware.RequestIDHeader: "req-42"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("security headers", func(t *testing.T) {
		rec := do(t, app, http.MethodGet, "/api/version", "", nil)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rec.Body.String(), config.AppVersion)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := do(t, app, http.MethodGet, "/api/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "json")
	})

	t.Run("metrics disabled", func(t *testing.T) {
		rec := do(t, app, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestInsightsConfig(t *testing.T) {
	cfg := config.InsightsConfig{
		APIKey:          "sk-test",
		Model:           "gpt-test",
		Temperature:     0,
		MaxOutputTokens: 100,
		Timeout:         5 * time.Second,
		MaxAttempts:     5,
	}

	got := insightsConfig(cfg)
	assert.Equal(t, "sk-test", got.APIKey)
	assert.Equal(t, "gpt-test", got.Model)
	assert.Zero(t, got.Temperature)
	assert.Equal(t, 5, got.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, got.Timeout)
}

func TestStartStopsOnCancel(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = 0
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
