package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error with an HTTP status and a stable machine-readable code.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError carrying details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidFilter      = "INVALID_FILTER"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeDatasetUnavailable = "DATASET_UNAVAILABLE"
	CodeInsightsDisabled   = "INSIGHTS_DISABLED"
	CodeUpstreamFailure    = "UPSTREAM_FAILURE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
)

var (
	// 400
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")

	// 404
	ErrNotFound = New(http.StatusNotFound, CodeNotFound, "Resource not found")

	// 429
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500
	ErrInternalServer = New(http.StatusInternalServerError, CodeInternal, "Internal server error")

	// 502
	ErrUpstreamFailure = New(http.StatusBadGateway, CodeUpstreamFailure, "Insight provider request failed")

	// 503
	ErrDatasetUnavailable = New(http.StatusServiceUnavailable, CodeDatasetUnavailable, "Sales dataset is not loaded")
	ErrInsightsDisabled   = New(http.StatusServiceUnavailable, CodeInsightsDisabled, "Insight generation is not configured")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
)

// InvalidRequestWithError creates an invalid request error carrying err's text.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error for one field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// InvalidFilter reports a malformed filter value under its wire key.
func InvalidFilter(key, reason string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidFilter, fmt.Sprintf("Invalid filter %q: %s", key, reason), ValidationError{
		Field:   key,
		Message: reason,
	})
}

// NotFoundError creates a not found error for resource.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}

// UpstreamError wraps a failed call to the insight provider.
func UpstreamError(err error) *APIError {
	return NewWithDetails(http.StatusBadGateway, CodeUpstreamFailure, "Insight provider request failed", err.Error())
}

// DatasetUnavailable wraps a dataset load failure.
func DatasetUnavailable(err error) *APIError {
	return NewWithDetails(http.StatusServiceUnavailable, CodeDatasetUnavailable, "Sales dataset is not loaded", err.Error())
}

// ValidationErrors is the details payload for multi-field validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates a validation error covering several fields.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}
