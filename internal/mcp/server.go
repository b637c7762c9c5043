package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"salespulse/internal/analytics"
	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/internal/insights"
	"salespulse/internal/services"
)

// SalesAPI is the subset of the sales service the tools call.
type SalesAPI interface {
	Filter(ctx context.Context, spec analytics.FilterSpec, limit int) (*services.FilterResponse, error)
	KPIs(ctx context.Context, spec analytics.FilterSpec, topN int) (*analytics.KPIReport, error)
	Insights(ctx context.Context, in services.InsightsInput) (*insights.Report, error)
}

// Server handles MCP protocol requests
type Server struct {
	sales   SalesAPI
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	name    string
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records a counter per handled method.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithServerInfo overrides the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// NewServer creates a new MCP server
func NewServer(sales SalesAPI, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		sales:   sales,
		logger:  infrastructure.WithComponent(logger, "mcp"),
		name:    config.MCPServerName,
		version: config.AppVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleRequest processes an MCP request and returns a response.
// Notifications (requests without ID) return nil.
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()

	resp := s.dispatch(ctx, req)

	failed := resp != nil && resp.Error != nil
	s.metrics.RecordMCPRequest(ctx, req.Method, failed)

	attrs := []any{
		slog.String("method", req.Method),
		slog.Duration("duration", time.Since(start)),
	}
	if failed {
		attrs = append(attrs,
			slog.Int("code", resp.Error.Code),
			slog.String("error", resp.Error.Message))
		s.logger.WarnContext(ctx, "mcp request failed", attrs...)
	} else {
		s.logger.DebugContext(ctx, "mcp request handled", attrs...)
	}

	if req.ID == nil {
		return nil
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	id := req.ID

	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(id, InvalidRequest, "Invalid request", nil)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(id)
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "tools/list":
		return resultResponse(id, map[string]any{"tools": getAllTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req, id)
	case "ping":
		return &Response{
			JSONRPC: "2.0",
			ID:      id,
			Result:  json.RawMessage(`"pong"`),
		}
	default:
		return errorResponse(id, MethodNotFound, "Method not found", nil)
	}
}

func (s *Server) handleInitialize(id any) *Response {
	return resultResponse(id, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request, id any) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(id, InvalidParams, "Invalid parameters", nil)
	}

	var (
		payload any
		err     error
	)
	switch params.Name {
	case ToolFilterSales:
		payload, err = s.callFilter(ctx, params.Arguments)
	case ToolComputeKPIs:
		payload, err = s.callKPIs(ctx, params.Arguments)
	case ToolGenerateInsights, ToolGenerateInsightsLegacy:
		payload, err = s.callInsights(ctx, params.Arguments)
	default:
		return errorResponse(id, InvalidParams, "Unknown tool: "+params.Name, nil)
	}
	if err != nil {
		code, message, data := toRPCError(err)
		return errorResponse(id, code, message, data)
	}

	result, err := toolResult(payload)
	if err != nil {
		return errorResponse(id, InternalError, fmt.Sprintf("Failed to marshal result: %v", err), nil)
	}
	return resultResponse(id, result)
}

// toolResult renders payload as both a text block and structured content.
func toolResult(payload any) (*ToolResult, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ToolResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: json.RawMessage(text),
		IsError:           false,
	}, nil
}

func resultResponse(id any, result any) *Response {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, InternalError, fmt.Sprintf("Failed to marshal result: %v", err), nil)
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  resultJSON,
	}
}

func errorResponse(id any, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ErrorObject{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
