package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	apierrors "salespulse/internal/errors"
)

// APIKeyHeader is the header checked by APIKeyAuth.
const APIKeyHeader = "X-API-Key"

type apiClientKey struct{}

// APIKeyAuth requires a known key in X-API-Key or an "Authorization: Bearer"
// header. validKeys maps each key to a client name, which is stored in the
// request context. An empty map disables the check.
func APIKeyAuth(logger *slog.Logger, validKeys map[string]string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			apiKey := extractAPIKey(r)
			if apiKey == "" {
				logger.WarnContext(ctx, "missing API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized,
					"Unauthorized", "API key required")
				return
			}

			clientName, ok := lookupKey(validKeys, apiKey)
			if !ok {
				logger.WarnContext(ctx, "invalid API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized,
					"Unauthorized", "Invalid API key")
				return
			}

			ctx = context.WithValue(ctx, apiClientKey{}, clientName)
			logger.DebugContext(ctx, "API key accepted",
				slog.String("client", clientName),
				slog.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIClient returns the client name authenticated by APIKeyAuth.
func APIClient(ctx context.Context) string {
	name, _ := ctx.Value(apiClientKey{}).(string)
	return name
}

func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// lookupKey compares against every configured key in constant time.
func lookupKey(validKeys map[string]string, apiKey string) (string, bool) {
	var (
		match string
		found bool
	)
	for key, client := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			match, found = client, true
		}
	}
	return match, found
}
