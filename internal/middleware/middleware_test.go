package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/infrastructure"
	"salespulse/internal/shared/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestRequestID(t *testing.T) {
	t.Run("generates id", func(t *testing.T) {
		var seen, traceID string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetReqID(r.Context())
			traceID = infrastructure.GetTraceID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		assert.Equal(t, seen, traceID)
	})

	t.Run("reuses inbound header", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetReqID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sales/kpis", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, logs.ContainsMessage("request completed"))
	assert.True(t, logs.ContainsAttr("status", int64(http.StatusOK)))
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 1, logger)
	h := rl.Handler(okHandler)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "/errors/rate-limit")
	assert.True(t, logs.ContainsMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := Timeout(10*time.Millisecond, logger)

	t.Run("handler honours deadline", func(t *testing.T) {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sales/insights", nil))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Contains(t, rec.Body.String(), "/errors/timeout")
		assert.True(t, logs.ContainsMessage("request timeout"))
	})

	t.Run("fast handler untouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{
			name:       "allowed origin echoed",
			origins:    []string{"http://localhost:8080"},
			method:     http.MethodPost,
			origin:     "http://localhost:8080",
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:8080",
		},
		{
			name:       "unknown origin gets no header",
			origins:    []string{"http://localhost:8080"},
			method:     http.MethodPost,
			origin:     "http://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard",
			origins:    []string{"*"},
			method:     http.MethodGet,
			origin:     "http://any.example",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "preflight short-circuits",
			origins:    []string{"http://localhost:8080"},
			method:     http.MethodOptions,
			origin:     "http://localhost:8080",
			preflight:  true,
			wantStatus: http.StatusNoContent,
			wantOrigin: "http://localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(CORSConfig{AllowedOrigins: tt.origins})(okHandler)

			req := httptest.NewRequest(tt.method, "/api/sales/filter", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
