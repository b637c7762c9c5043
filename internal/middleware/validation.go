package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "salespulse/internal/errors"
)

// DefaultMaxBodySize caps request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

// ValidationMiddleware checks request bodies before decoding and validates
// decoded request structs against their `validate` tags.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware. A
// non-positive maxBodySize selects DefaultMaxBodySize.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxBodySize int64) *ValidationMiddleware {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  maxBodySize,
	}
}

// ValidateRequest rejects oversized bodies with 413 and malformed JSON with
// 400. The body is restored for the handler. Requests without a body pass.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, m.tooLarge())
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, m.maxBodySize))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				m.errorHandler.HandleError(w, r, m.tooLarge())
				return
			}
			m.logger.WarnContext(r.Context(), "failed to read request body",
				slog.String("error", err.Error()),
				slog.String("request_id", GetReqID(r.Context())),
			)
			m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			m.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusBadRequest,
				apierrors.CodeInvalidRequest,
				"Request body contains invalid JSON",
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *ValidationMiddleware) tooLarge() *apierrors.APIError {
	return apierrors.NewWithDetails(
		http.StatusRequestEntityTooLarge,
		apierrors.CodePayloadTooLarge,
		"Request body exceeds maximum allowed size",
		map[string]interface{}{"max_size": m.maxBodySize},
	)
}

// ValidateStruct validates v and reports every failing field by its JSON
// name.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator requires one of contentTypes on requests that carry a
// body.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(strings.ToLower(contentType), allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeProblem(w, r, http.StatusUnsupportedMediaType, apierrors.TypeValidation,
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type %q is not accepted, use %s", contentType, strings.Join(contentTypes, " or ")))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// QueryParamValidator validates query parameters
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateEnum returns the lower-cased param, or defaultValue when absent.
// Values outside allowed are answered with a validation error and ok=false.
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(param)))
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.logger.DebugContext(r.Context(), "rejected query parameter",
		slog.String("param", param),
		slog.String("value", value),
	)
	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
