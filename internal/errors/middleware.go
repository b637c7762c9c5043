package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// maxLoggedBody caps how much of a failing request body is logged.
const maxLoggedBody = 500

// sensitiveFields are redacted from logged request bodies.
var sensitiveFields = []string{"api_key", "apiKey", "openai_api_key", "token", "secret", "password", "authorization"}

// ErrorMiddleware logs each request and, for failures, the sanitized body.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error logging middleware.
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function.
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		var requestBody []byte
		if r.Body != nil && r.ContentLength > 0 && r.ContentLength < 1<<20 {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				m.handler.HandlePanic(ww, r, rec)
			}
		}()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status < http.StatusBadRequest {
			return
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if len(requestBody) > 0 {
			body := sanitizeRequestBody(string(requestBody))
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody] + "..."
			}
			attrs = append(attrs, slog.String("request_body", body))
		}

		m.logger.LogAttrs(r.Context(), level, "request failed", attrs...)
	})
}

// sanitizeRequestBody redacts sensitive top-level keys of a JSON body.
func sanitizeRequestBody(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}

	for key := range data {
		for _, field := range sensitiveFields {
			if strings.EqualFold(key, field) {
				data[key] = "[REDACTED]"
			}
		}
	}

	sanitized, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return string(sanitized)
}
