package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"salespulse/internal/services"
	"salespulse/internal/shared/testutil"
)

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockHealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthHandler(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockHealthService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "health",
			path: "/api/health",
			setupMock: func(m *MockHealthService) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "ok", Timestamp: now, Version: "1.0.0"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ok"`,
		},
		{
			name: "ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "ready", Timestamp: now})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"ready"`,
		},
		{
			name: "not ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{
					Status:    "not_ready",
					Timestamp: now,
					Services: map[string]services.ServiceHealth{
						"dataset": {Status: "not_ready", Message: "dataset not loaded: sales.csv"},
					},
				})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `dataset not loaded`,
		},
		{
			name: "live",
			path: "/api/health/live",
			setupMock: func(m *MockHealthService) {
				m.On("LivenessCheck").Return(services.HealthStatus{Status: "alive", Timestamp: now})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"alive"`,
		},
		{
			name: "detailed",
			path: "/api/health/detailed",
			setupMock: func(m *MockHealthService) {
				m.On("GetDetailedHealth").Return(map[string]interface{}{"stats": map[string]int{"dataset_rows": 5}})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"dataset_rows":5`,
		},
		{
			name: "version",
			path: "/api/version",
			setupMock: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": "1.0.0"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"version":"1.0.0"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			tt.setupMock(svc)
			logger, _ := testutil.NewTestLogger(t)
			handler := NewHealthHandler(svc, logger)

			r := chi.NewRouter()
			r.Mount("/api/health", handler.Routes())
			r.Get("/api/version", handler.Version)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
