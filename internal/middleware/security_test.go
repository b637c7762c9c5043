package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"salespulse/internal/shared/testutil"
)

func TestAPIKeyAuth(t *testing.T) {
	keys := map[string]string{"k-ops": "ops", "k-bi": "dashboard"}

	tests := []struct {
		name       string
		keys       map[string]string
		header     string
		value      string
		wantStatus int
		wantClient string
	}{
		{
			name:       "no keys configured",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			keys:       keys,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown key",
			keys:       keys,
			header:     APIKeyHeader,
			value:      "nope",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "api key header",
			keys:       keys,
			header:     APIKeyHeader,
			value:      "k-ops",
			wantStatus: http.StatusOK,
			wantClient: "ops",
		},
		{
			name:       "bearer token",
			keys:       keys,
			header:     "Authorization",
			value:      "Bearer k-bi",
			wantStatus: http.StatusOK,
			wantClient: "dashboard",
		},
		{
			name:       "basic scheme rejected",
			keys:       keys,
			header:     "Authorization",
			value:      "Basic k-bi",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)

			var client string
			h := APIKeyAuth(logger, tt.keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				client = APIClient(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/sales/kpis", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantClient, client)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "/errors/unauthorized")
			}
		})
	}
}
