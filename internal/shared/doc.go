// Package shared holds helpers used across the salespulse packages that do
// not belong to any domain layer.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler with assertions for log output
//   - sales row fixtures and CSV writers for loader and handler tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    path := testutil.MustWriteSalesCSV(t)
//	    logger, logs := testutil.NewTestLogger(t)
//	    ...
//	}
package shared
