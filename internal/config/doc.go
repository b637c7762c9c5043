// Package config loads the sales service configuration.
//
// # Configuration Sources
//
// Values are layered in this order, later layers overriding earlier ones:
//
//	1. Default()
//	2. A YAML file (SALES_CONFIG_FILE, or config.yaml / configs/config.yaml)
//	3. Environment variables prefixed with SALES_
//
// # Environment Variables
//
// Nested sections are joined with underscores:
//
//	SALES_SERVER_PORT=8080
//	SALES_DATASET_CSV_PATH=/data/sales.csv
//	SALES_ENGINE_TOP_N=10
//	SALES_INSIGHTS_OPENAI_MODEL=gpt-4o-mini
//
// The dataset path and OPENAI_* settings are also read from their bare
// names (CSV_PATH, OPENAI_API_KEY, OPENAI_MODEL, OPENAI_TEMPERATURE,
// OPENAI_BASE_URL) so existing .env files keep working.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
package config
