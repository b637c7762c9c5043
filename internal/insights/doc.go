// Package insights turns a KPI report into a short analytical narrative by
// calling an OpenAI-compatible chat completions endpoint.
//
// The model only ever sees the aggregated KPIs, never raw rows. Responses are
// requested as a JSON object and decoded into a Report. Identical requests are
// served from an in-memory TTL cache and concurrent duplicates share one
// upstream call. Transient upstream failures are retried with exponential
// backoff.
//
// A Client built without an API key is disabled: Generate returns ErrDisabled
// and callers are expected to degrade gracefully.
package insights
