package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"salespulse/internal/analytics"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
)

// FilterRequest is the body of POST /api/sales/filter.
type FilterRequest struct {
	Filters json.RawMessage `json:"filters"`
	Limit   *int            `json:"limit" validate:"omitnil,min=1,max=2000"`
}

// KPIRequest is the body of POST /api/sales/kpis and its export variant.
type KPIRequest struct {
	Filters json.RawMessage `json:"filters"`
	TopN    *int            `json:"top_n" validate:"omitnil,min=1,max=1000"`
}

// InsightRequest is the body of POST /api/sales/insights.
type InsightRequest struct {
	Filters  json.RawMessage `json:"filters"`
	KPIs     json.RawMessage `json:"kpis"`
	Question string          `json:"question" validate:"max=2000"`
}

// SalesHandler serves the filter, KPI, insight and dataset endpoints.
type SalesHandler struct {
	service      SalesServiceInterface
	exporter     *exporter.ReportExporter
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewSalesHandler creates a new sales handler. validation may be shared
// with the router so body limits and struct rules stay in one place.
func NewSalesHandler(service SalesServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SalesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesHandler{
		service:      service,
		exporter:     exporter.NewReportExporter(logger),
		validation:   validation,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "sales_handler")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Routes returns the sales routes, to be mounted at /api/sales.
func (h *SalesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.ContentTypeValidator("application/json"))
	r.Use(h.validation.ValidateRequest)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/filter", h.Filter)
		r.Post("/kpis", h.KPIs)
		r.Post("/insights", h.Insights)
		r.Get("/dataset", h.Dataset)
		r.Post("/dataset/reload", h.ReloadDataset)
	})

	r.Post("/kpis/export", h.ExportKPIs)

	return r
}

// Filter handles POST /api/sales/filter
func (h *SalesHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	spec, ok := h.decode(w, r, &req, func() json.RawMessage { return req.Filters })
	if !ok {
		return
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	result, err := h.service.Filter(r.Context(), spec, limit)
	if err != nil {
		h.fail(w, r, "filter", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  result.RowCount,
	})
}

// KPIs handles POST /api/sales/kpis
func (h *SalesHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	report, ok := h.computeKPIs(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// ExportKPIs handles POST /api/sales/kpis/export?format=csv|xlsx. The
// report is rendered in full before the first byte is written so failures
// still produce a problem response.
func (h *SalesHandler) ExportKPIs(w http.ResponseWriter, r *http.Request) {
	name, ok := h.query.ValidateEnum(w, r, "format", []string{"csv", "xlsx", "excel"}, string(exporter.FormatCSV))
	if !ok {
		return
	}
	format, err := exporter.ParseFormat(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	report, ok := h.computeKPIs(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, report, format); err != nil {
		h.fail(w, r, "export", err)
		return
	}

	filename := fmt.Sprintf("sales-kpis-%s%s", h.now().UTC().Format("20060102-150405"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// Insights handles POST /api/sales/insights
func (h *SalesHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	spec, ok := h.decode(w, r, &req, func() json.RawMessage { return req.Filters })
	if !ok {
		return
	}

	report, err := h.service.Insights(r.Context(), services.InsightsInput{
		KPIs:     req.KPIs,
		Filters:  spec,
		Question: req.Question,
	})
	if err != nil {
		h.fail(w, r, "insights", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// Dataset handles GET /api/sales/dataset
func (h *SalesHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.DatasetInfo(r.Context()),
	})
}

// ReloadDataset handles POST /api/sales/dataset/reload
func (h *SalesHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Reload(r.Context())
	if err != nil {
		h.fail(w, r, "reload", err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("client", middleware.APIClient(r.Context())),
		slog.Int("rows", ds.Stats.Rows),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   ds,
	})
}

func (h *SalesHandler) computeKPIs(w http.ResponseWriter, r *http.Request) (*analytics.KPIReport, bool) {
	var req KPIRequest
	spec, ok := h.decode(w, r, &req, func() json.RawMessage { return req.Filters })
	if !ok {
		return nil, false
	}

	topN := 0
	if req.TopN != nil {
		topN = *req.TopN
	}

	report, err := h.service.KPIs(r.Context(), spec, topN)
	if err != nil {
		h.fail(w, r, "kpis", err)
		return nil, false
	}
	return report, true
}

// decode reads the JSON body into dst, validates it and parses its filter
// object. An empty body is an empty request.
func (h *SalesHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, filters func() json.RawMessage) (analytics.FilterSpec, bool) {
	if err := render.DecodeJSON(r.Body, dst); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(typeErr.Field, "must be a "+typeErr.Type.String()))
			return analytics.FilterSpec{}, false
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return analytics.FilterSpec{}, false
	}

	if err := h.validation.ValidateStruct(dst); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return analytics.FilterSpec{}, false
	}

	spec, err := analytics.ParseFilterSpec(filters())
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return analytics.FilterSpec{}, false
	}
	return spec, true
}

func (h *SalesHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), "sales request failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	h.errorHandler.HandleError(w, r, toAPIError(err))
}
