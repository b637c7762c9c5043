package insights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a business data analyst. Answer in an analytical (not creative) style. " +
	"Use only the data provided in the KPI. If information is missing, state that it cannot be inferred. " +
	"Each insight should include numbers or percentages when possible. " +
	`Return a JSON object with exactly these keys: "note" (string, caveats about the data), ` +
	`"insights" (array of strings), "summary" (string) and "recommendations" (array of strings).`

// userContent renders the question and the KPI document for the model.
func userContent(question string, kpis json.RawMessage) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, kpis, "", "  "); err != nil {
		return "", fmt.Errorf("kpis are not valid JSON: %w", err)
	}
	return fmt.Sprintf("Question: %s\n\nKPI (JSON):\n%s", question, pretty.String()), nil
}

// parseReport decodes the model's reply, tolerating a Markdown code fence
// around the JSON.
func parseReport(content string) (*Report, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start > 0 && end > start {
		text = text[start : end+1]
	}

	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	if report.Insights == nil {
		report.Insights = []string{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	report.Note = strings.TrimSpace(report.Note)
	report.Summary = strings.TrimSpace(report.Summary)
	return &report, nil
}
