// Package app wires the sales service together: configuration, logging,
// OpenTelemetry, the dataset store, the analytics engine, the insight client,
// the HTTP router and the MCP endpoint.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, SALES_* environment)
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Build the dataset store, engine, insight client and services
//	4. Build the chi router and the HTTP server
//	5. Optionally preload the dataset, then serve
//
// # Middleware Order
//
//	RequestID → RealIP → OTel → StructuredLogger → ErrorMiddleware (recovery)
//	→ SecurityHeaders → CORS → RateLimiter → Timeout
//
// The sales routes and /mcp additionally require an API key when
// security.api_keys is configured. /metrics is served outside the group when
// the Prometheus exporter is enabled.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. In-flight requests get
// server.shutdown_timeout to finish, then the OpenTelemetry providers are
// flushed and the log file is closed.
package app
