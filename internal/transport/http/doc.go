// Package http implements the REST handlers of the sales service. Handlers
// are a thin layer over the service interfaces: they decode and validate the
// request, call the service, and either render a
// {"status":"success","data":...} envelope or hand the error to
// errors.ErrorHandler for an RFC 7807 response.
//
// # Routes
//
//	GET  /api/health              liveness summary
//	GET  /api/health/ready        503 until the dataset is loaded
//	GET  /api/health/live
//	GET  /api/health/detailed     health, readiness, liveness and runtime stats
//	GET  /api/version
//	POST /api/sales/filter        {filters, limit}
//	POST /api/sales/kpis          {filters, top_n}
//	POST /api/sales/kpis/export   {filters, top_n}, ?format=csv|xlsx
//	POST /api/sales/insights      {filters, kpis, question}
//	GET  /api/sales/dataset
//	POST /api/sales/dataset/reload
//
// # Error Mapping
//
// Malformed filter values answer 400 INVALID_FILTER with the offending key
// in details.field. Other bad fields answer 400 VALIDATION_FAILED. A dataset
// that cannot be loaded answers 503 DATASET_UNAVAILABLE, insight generation
// without an API key answers 503 INSIGHTS_DISABLED, and a failing completion
// API answers 502 UPSTREAM_FAILURE.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of
// SalesServiceInterface and HealthServiceInterface.
package http
