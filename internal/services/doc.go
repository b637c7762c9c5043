// Package services implements the business logic layer of the sales
// analyzer. It sits between the transports (HTTP handlers, the MCP server
// and the report CLI) and the analytics engine, so every surface applies
// the same limits, logging and metrics.
//
// # Services
//
//	- DatasetStore: loads the sales export once and shares it read-only
//	- SalesService: filter, KPI and insight requests plus dataset reload
//	- HealthService: liveness, readiness and runtime statistics
//
// # Error Handling
//
// Services return sentinel errors that transports map to their own
// error shapes:
//
//	- *analytics.ValidationError for rejected filters, limit and top_n
//	- ErrDatasetUnavailable when the dataset cannot be loaded
//	- ErrInsightsDisabled when no completion API key is configured
//	- ErrUpstreamFailure when the completion API fails
//
// # Testing
//
// Services are tested with fakes for the loader and insight generator:
//
//	loader := &fakeLoader{dataset: ds}
//	store := NewDatasetStore(loader, "sales.csv", logger, nil)
//	svc := NewSalesService(store, analytics.NewEngine(), logger)
package services
