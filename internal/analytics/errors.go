package analytics

import "fmt"

// ValidationError reports a malformed filter value. Key is the filter key as
// it appears on the wire, e.g. "min_revenue".
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Key, e.Reason)
}

func newValidationError(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
