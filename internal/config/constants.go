package config

import "time"

// Application constants
const (
	AppName    = "salespulse"
	AppVersion = "1.0.0"

	// MCPServerName is reported in the MCP initialize handshake.
	MCPServerName = "csv-sales-analyzer"

	DefaultDatasetPath = "data/Online Sales Data.csv"
	DefaultLogFile     = "logs/salespulse.log"
	DefaultModel       = "gpt-4o-mini"

	DefaultPreviewSize = 10
	DefaultTopN        = 5
	// MaxPreviewLimit bounds the limit parameter of filter requests.
	MaxPreviewLimit = 2000

	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	DefaultRequestTimeout = 30 * time.Second
)
