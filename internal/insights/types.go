package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultQuestion is used when a request carries no question.
const DefaultQuestion = "Give analytical insights and recommendations based on the KPIs only."

// ErrDisabled is returned by a client that has no API key.
var ErrDisabled = errors.New("insight generation is not configured")

// Request asks for insights about a KPI report. KPIs must be a JSON object.
type Request struct {
	KPIs     json.RawMessage `json:"kpis"`
	Question string          `json:"question,omitempty"`
}

// Report is the structured narrative returned by the model.
type Report struct {
	Note            string   `json:"note"`
	Insights        []string `json:"insights"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Model           string   `json:"model,omitempty"`
}

// Generator produces insight reports.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Report, error)
}

// StatusError is a non-2xx response from the completion API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion API returned status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
