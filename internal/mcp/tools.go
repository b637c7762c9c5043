package mcp

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Tool names.
const (
	ToolFilterSales      = "filter_sales_data"
	ToolComputeKPIs      = "compute_sales_kpis"
	ToolGenerateInsights = "generate_insights"
	// ToolGenerateInsightsLegacy is accepted as an alias of
	// ToolGenerateInsights for clients configured against older servers.
	ToolGenerateInsightsLegacy = "openai_generate_insights"
)

func labelSchema(desc string) map[string]any {
	return map[string]any{
		"description": desc + " Matches case-insensitively; a list matches any of its values.",
		"anyOf": []map[string]any{
			{"type": "string"},
			{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

func boundSchema(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"anyOf": []map[string]any{
			{"type": "number"},
			{"type": "string"},
		},
	}
}

func filterSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Optional filters. Omitted keys do not constrain the result.",
		"properties": map[string]any{
			"category":       labelSchema("Product category."),
			"region":         labelSchema("Sales region."),
			"payment_method": labelSchema("Payment method."),
			"product_name_contains": map[string]any{
				"type":        "string",
				"description": "Case-insensitive substring of the product name.",
			},
			"min_revenue": boundSchema("Inclusive lower bound on row revenue."),
			"max_revenue": boundSchema("Inclusive upper bound on row revenue."),
			"date_from": map[string]any{
				"type":        "string",
				"description": "YYYY-MM-DD (inclusive). Example: 2024-01-01",
			},
			"date_to": map[string]any{
				"type":        "string",
				"description": "YYYY-MM-DD (inclusive). Example: 2024-12-31",
			},
		},
	}
}

// getAllTools returns the sales analysis tools.
func getAllTools() []Tool {
	return []Tool{
		{
			Name:        ToolFilterSales,
			Description: "Return the number of matching rows and a preview of them from the sales dataset.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filters": filterSchema(),
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum preview rows returned (1-2000, default 10).",
						"minimum":     1,
						"maximum":     2000,
					},
				},
			},
		},
		{
			Name:        ToolComputeKPIs,
			Description: "Compute revenue, unit, order and price KPIs with category, region and top product breakdowns after applying filters.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"filters": filterSchema(),
					"top_n": map[string]any{
						"type":        "integer",
						"description": "Number of top products by revenue (default 5).",
						"minimum":     1,
					},
				},
			},
		},
		{
			Name:        ToolGenerateInsights,
			Description: "Generate analytical insights, a summary and recommendations from a KPI report. When kpis is omitted they are computed from filters.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kpis": map[string]any{
						"type":        "object",
						"description": "A report returned by compute_sales_kpis.",
					},
					"filters": filterSchema(),
					"question": map[string]any{
						"type":        "string",
						"description": "What to focus on.",
					},
				},
			},
		},
	}
}
