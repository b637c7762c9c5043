package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"salespulse/internal/analytics"
	"salespulse/internal/dataprocessing"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/insights"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
	"salespulse/internal/shared/testutil"
)

// MockSalesService is a mock implementation of SalesServiceInterface
type MockSalesService struct {
	mock.Mock
}

func (m *MockSalesService) Filter(ctx context.Context, spec analytics.FilterSpec, limit int) (*services.FilterResponse, error) {
	args := m.Called(spec, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FilterResponse), args.Error(1)
}

func (m *MockSalesService) KPIs(ctx context.Context, spec analytics.FilterSpec, topN int) (*analytics.KPIReport, error) {
	args := m.Called(spec, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.KPIReport), args.Error(1)
}

func (m *MockSalesService) Insights(ctx context.Context, in services.InsightsInput) (*insights.Report, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insights.Report), args.Error(1)
}

func (m *MockSalesService) Reload(ctx context.Context) (*dataprocessing.Dataset, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataprocessing.Dataset), args.Error(1)
}

func (m *MockSalesService) DatasetInfo(ctx context.Context) *services.DatasetInfo {
	return m.Called().Get(0).(*services.DatasetInfo)
}

func newSalesRouter(t *testing.T, svc *MockSalesService) (http.Handler, *SalesHandler) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := middleware.NewValidationMiddleware(logger, errorHandler, 0)

	handler := NewSalesHandler(svc, validation, logger, errorHandler)
	handler.now = func() time.Time { return time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/sales", handler.Routes())
	return r, handler
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func regionIs(region string) interface{} {
	return mock.MatchedBy(func(spec analytics.FilterSpec) bool {
		return len(spec.Region) == 1 && spec.Region[0] == region
	})
}

func TestSalesHandler_Filter(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockSalesService)
		expectedStatus int
		expectedCode   string
		expectedField  string
	}{
		{
			name: "success",
			body: `{"filters":{"region":"Europe"},"limit":5}`,
			setupMock: func(m *MockSalesService) {
				m.On("Filter", regionIs("Europe"), 5).Return(&services.FilterResponse{
					RowCount: 2,
					Columns:  services.PreviewColumns,
					Preview:  []analytics.Row{{OrderID: "10002"}, {OrderID: "10005"}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "empty body uses defaults",
			body: "",
			setupMock: func(m *MockSalesService) {
				m.On("Filter", analytics.FilterSpec{}, 0).Return(&services.FilterResponse{RowCount: 5}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "zero limit",
			body:           `{"limit":0}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:           "limit above maximum",
			body:           `{"limit":2001}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:           "limit wrong type",
			body:           `{"limit":"ten"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
			expectedField:  "limit",
		},
		{
			name:           "malformed bound",
			body:           `{"filters":{"min_revenue":"abc"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeInvalidFilter,
			expectedField:  analytics.KeyMinRevenue,
		},
		{
			name:           "malformed date",
			body:           `{"filters":{"date_from":"01/02/2024"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeInvalidFilter,
			expectedField:  analytics.KeyDateFrom,
		},
		{
			name:           "invalid json",
			body:           `{"filters":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeInvalidRequest,
		},
		{
			name: "dataset unavailable",
			body: `{}`,
			setupMock: func(m *MockSalesService) {
				m.On("Filter", analytics.FilterSpec{}, 0).
					Return(nil, fmt.Errorf("%w: open sales.csv: no such file", services.ErrDatasetUnavailable))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apierrors.CodeDatasetUnavailable,
		},
		{
			name: "unexpected error",
			body: `{}`,
			setupMock: func(m *MockSalesService) {
				m.On("Filter", analytics.FilterSpec{}, 0).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSalesService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			router, _ := newSalesRouter(t, svc)

			rec := postJSON(router, "/api/sales/filter", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "success", body["status"])
				assert.Contains(t, body, "count")
			}
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			}
			if tt.expectedField != "" {
				details, ok := body["details"].(map[string]interface{})
				require.True(t, ok, "details: %v", body["details"])
				assert.Equal(t, tt.expectedField, details["field"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSalesHandler_FilterRejectsNonJSON(t *testing.T) {
	svc := new(MockSalesService)
	router, _ := newSalesRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/sales/filter", strings.NewReader("region=Europe"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	svc.AssertNotCalled(t, "Filter", mock.Anything, mock.Anything)
}

func TestSalesHandler_KPIs(t *testing.T) {
	report := &analytics.KPIReport{TotalRevenue: 2479.93, RecordCount: 3, OrderCount: 3}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockSalesService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "success",
			body: `{"filters":{"category":["Electronics"]},"top_n":3}`,
			setupMock: func(m *MockSalesService) {
				m.On("KPIs", mock.MatchedBy(func(spec analytics.FilterSpec) bool {
					return len(spec.Category) == 1 && spec.Category[0] == "Electronics"
				}), 3).Return(report, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "zero top_n",
			body:           `{"top_n":0}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:           "label of wrong shape",
			body:           `{"filters":{"region":42}}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeInvalidFilter,
		},
		{
			name: "service validation",
			body: `{"top_n":5}`,
			setupMock: func(m *MockSalesService) {
				m.On("KPIs", analytics.FilterSpec{}, 5).
					Return(nil, &analytics.ValidationError{Key: "top_n", Reason: "must be at most 1000"})
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSalesService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			router, _ := newSalesRouter(t, svc)

			rec := postJSON(router, "/api/sales/kpis", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			} else {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, 2479.93, data["total_revenue"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSalesHandler_ExportKPIs(t *testing.T) {
	report := &analytics.KPIReport{
		TotalRevenue: 899.98,
		RecordCount:  2,
		BreakdownByRegion: []analytics.GroupMetric{
			{Label: "Europe", Revenue: 899.98, Share: 1, UnitsSold: 2, RecordCount: 2},
		},
	}

	t.Run("csv", func(t *testing.T) {
		svc := new(MockSalesService)
		svc.On("KPIs", regionIs("Europe"), 0).Return(report, nil)
		router, _ := newSalesRouter(t, svc)

		rec := postJSON(router, "/api/sales/kpis/export?format=csv", `{"filters":{"region":"Europe"}}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Equal(t, `attachment; filename="sales-kpis-20240105-093000.csv"`, rec.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\ufeff")))
		assert.Contains(t, rec.Body.String(), "region,Europe,revenue,899.98")
	})

	t.Run("xlsx", func(t *testing.T) {
		svc := new(MockSalesService)
		svc.On("KPIs", analytics.FilterSpec{}, 0).Return(report, nil)
		router, _ := newSalesRouter(t, svc)

		rec := postJSON(router, "/api/sales/kpis/export?format=xlsx", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockSalesService)
		router, _ := newSalesRouter(t, svc)

		rec := postJSON(router, "/api/sales/kpis/export?format=pdf", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.CodeValidationFailed, decodeBody(t, rec)["error_code"])
		svc.AssertNotCalled(t, "KPIs", mock.Anything, mock.Anything)
	})
}

func TestSalesHandler_Insights(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "success",
			body:           `{"kpis":{"total_revenue":10},"question":"Why?"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "disabled",
			body:           `{}`,
			serviceErr:     services.ErrInsightsDisabled,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apierrors.CodeInsightsDisabled,
		},
		{
			name:           "upstream failure",
			body:           `{}`,
			serviceErr:     fmt.Errorf("%w: status 500", services.ErrUpstreamFailure),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   apierrors.CodeUpstreamFailure,
		},
		{
			name:           "rejected input",
			body:           `{}`,
			serviceErr:     fmt.Errorf("%w: kpis too large", services.ErrInvalidInput),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
		{
			name:           "kpis not an object",
			body:           `{"kpis":[1,2]}`,
			serviceErr:     &analytics.ValidationError{Key: "kpis", Reason: "must be a JSON object"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSalesService)
			if tt.serviceErr != nil {
				svc.On("Insights", mock.Anything).Return(nil, tt.serviceErr)
			} else {
				svc.On("Insights", mock.MatchedBy(func(in services.InsightsInput) bool {
					return in.Question == "Why?" && string(in.KPIs) == `{"total_revenue":10}`
				})).Return(&insights.Report{
					Insights:        []string{"Revenue is concentrated"},
					Summary:         "Steady.",
					Recommendations: []string{"Stock more"},
				}, nil)
			}
			router, _ := newSalesRouter(t, svc)

			rec := postJSON(router, "/api/sales/insights", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			} else {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "Steady.", data["summary"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSalesHandler_Dataset(t *testing.T) {
	ds := &dataprocessing.Dataset{
		Source: "sales.csv",
		Format: dataprocessing.FormatCSV,
		Stats:  dataprocessing.LoadStats{Rows: 5},
	}

	t.Run("info", func(t *testing.T) {
		svc := new(MockSalesService)
		svc.On("DatasetInfo").Return(&services.DatasetInfo{Loaded: true, Path: "sales.csv", Dataset: ds})
		router, _ := newSalesRouter(t, svc)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/dataset", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, true, data["loaded"])
		assert.Equal(t, "sales.csv", data["path"])
	})

	t.Run("reload", func(t *testing.T) {
		svc := new(MockSalesService)
		svc.On("Reload").Return(ds, nil)
		router, _ := newSalesRouter(t, svc)

		rec := postJSON(router, "/api/sales/dataset/reload", "")

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		stats := data["stats"].(map[string]interface{})
		assert.Equal(t, float64(5), stats["rows"])
	})

	t.Run("reload failure", func(t *testing.T) {
		svc := new(MockSalesService)
		svc.On("Reload").Return(nil, fmt.Errorf("%w: parse error", services.ErrDatasetUnavailable))
		router, _ := newSalesRouter(t, svc)

		rec := postJSON(router, "/api/sales/dataset/reload", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apierrors.CodeDatasetUnavailable, decodeBody(t, rec)["error_code"])
	})
}

func TestToAPIError(t *testing.T) {
	plain := errors.New("plain")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"filter key", &analytics.ValidationError{Key: analytics.KeyRegion, Reason: "bad"}, http.StatusBadRequest, apierrors.CodeInvalidFilter},
		{"non-filter key", &analytics.ValidationError{Key: "limit", Reason: "bad"}, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"dataset", fmt.Errorf("%w: x", services.ErrDatasetUnavailable), http.StatusServiceUnavailable, apierrors.CodeDatasetUnavailable},
		{"disabled", services.ErrInsightsDisabled, http.StatusServiceUnavailable, apierrors.CodeInsightsDisabled},
		{"upstream", fmt.Errorf("%w: x", services.ErrUpstreamFailure), http.StatusBadGateway, apierrors.CodeUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *apierrors.APIError
			require.ErrorAs(t, toAPIError(tt.err), &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}

	assert.Same(t, plain, toAPIError(plain))
}
