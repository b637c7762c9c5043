package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"salespulse/internal/analytics"
	"salespulse/internal/services"
)

type filterArgs struct {
	Filters json.RawMessage `json:"filters"`
	Limit   *int            `json:"limit"`
}

type kpiArgs struct {
	Filters json.RawMessage `json:"filters"`
	TopN    *int            `json:"top_n"`
}

type insightArgs struct {
	KPIs     json.RawMessage `json:"kpis"`
	Filters  json.RawMessage `json:"filters"`
	Question string          `json:"question"`
}

func (s *Server) callFilter(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args filterArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	spec, err := analytics.ParseFilterSpec(args.Filters)
	if err != nil {
		return nil, err
	}

	// Older clients send the limit inside the filter object.
	if args.Limit == nil {
		var nested struct {
			Limit *int `json:"limit"`
		}
		if len(args.Filters) > 0 && json.Unmarshal(args.Filters, &nested) == nil {
			args.Limit = nested.Limit
		}
	}

	limit, err := positive("limit", args.Limit)
	if err != nil {
		return nil, err
	}
	return s.sales.Filter(ctx, spec, limit)
}

func (s *Server) callKPIs(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args kpiArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	spec, err := analytics.ParseFilterSpec(args.Filters)
	if err != nil {
		return nil, err
	}

	topN, err := positive("top_n", args.TopN)
	if err != nil {
		return nil, err
	}
	return s.sales.KPIs(ctx, spec, topN)
}

func (s *Server) callInsights(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args insightArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	spec, err := analytics.ParseFilterSpec(args.Filters)
	if err != nil {
		return nil, err
	}

	return s.sales.Insights(ctx, services.InsightsInput{
		KPIs:     args.KPIs,
		Filters:  spec,
		Question: args.Question,
	})
}

func decodeArguments(arguments json.RawMessage, dst any) error {
	arguments = bytes.TrimSpace(arguments)
	if len(arguments) == 0 || bytes.Equal(arguments, []byte("null")) {
		return nil
	}

	err := json.Unmarshal(arguments, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &analytics.ValidationError{Key: typeErr.Field, Reason: "must be a " + typeErr.Type.String()}
	}
	return &analytics.ValidationError{Key: "arguments", Reason: "must be a JSON object"}
}

// positive returns 0 for an absent value, meaning "use the default".
func positive(key string, v *int) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 1 {
		return 0, &analytics.ValidationError{Key: key, Reason: "must be at least 1"}
	}
	return *v, nil
}

// toRPCError maps service errors to JSON-RPC error fields.
func toRPCError(err error) (int, string, any) {
	var vErr *analytics.ValidationError
	switch {
	case errors.As(err, &vErr):
		return InvalidParams, vErr.Error(), FieldError{Field: vErr.Key, Reason: vErr.Reason}
	case errors.Is(err, services.ErrInvalidInput):
		return InvalidParams, err.Error(), nil
	case errors.Is(err, services.ErrInsightsDisabled):
		return InternalError, "Insight generation is not configured: set OPENAI_API_KEY", nil
	case errors.Is(err, services.ErrDatasetUnavailable):
		return InternalError, "Sales dataset is not available", err.Error()
	case errors.Is(err, services.ErrUpstreamFailure):
		return InternalError, "Insight provider request failed", err.Error()
	default:
		return InternalError, "Internal error", err.Error()
	}
}
