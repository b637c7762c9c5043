package insights

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	apperrors "salespulse/internal/errors"
)

// Defaults applied by NewClient.
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 700
	DefaultTimeout         = 30 * time.Second
	DefaultCacheTTL        = 10 * time.Minute
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	CacheTTL        time.Duration
	Retry           RetryPolicy
}

// Metrics receives client-side measurements. Outcome is "success", "error"
// or "disabled".
type Metrics interface {
	InsightRequest(ctx context.Context, outcome string, duration time.Duration)
	InsightCacheHit(ctx context.Context)
}

type noopMetrics struct{}

func (noopMetrics) InsightRequest(context.Context, string, time.Duration) {}
func (noopMetrics) InsightCacheHit(context.Context)                       {}

// Client is an OpenAI-compatible chat completions client. It is safe for
// concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    Metrics
	cache      *cache.Cache
	group      singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout takes precedence over Config.Timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient creates a client. Zero config fields take package defaults,
// except Temperature where only a negative value does.
func NewClient(cfg Config, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	cfg.Retry = cfg.Retry.withDefaults()

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "insights")),
		metrics:    noopMetrics{},
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate asks the model for insights about req.KPIs.
func (c *Client) Generate(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	if !c.Enabled() {
		c.metrics.InsightRequest(ctx, "disabled", 0)
		return nil, ErrDisabled
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = DefaultQuestion
	}

	content, err := userContent(question, req.KPIs)
	if err != nil {
		return nil, apperrors.NewAppValidationError(err.Error())
	}

	key := c.cacheKey(question, req.KPIs)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.InsightCacheHit(ctx)
		c.logger.DebugContext(ctx, "insight cache hit", slog.String("model", c.cfg.Model))
		return cloneReport(cached.(*Report)), nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		var report *Report
		err := Retry(ctx, c.cfg.Retry, func(ctx context.Context) error {
			var callErr error
			report, callErr = c.complete(ctx, content)
			if callErr != nil {
				c.logger.WarnContext(ctx, "completion attempt failed", slog.String("error", callErr.Error()))
			}
			return callErr
		})
		if err != nil {
			return nil, err
		}
		report.Model = c.cfg.Model
		c.cache.SetDefault(key, report)
		return report, nil
	})

	duration := time.Since(start)
	if err != nil {
		c.metrics.InsightRequest(ctx, "error", duration)
		c.logger.ErrorContext(ctx, "insight generation failed",
			slog.String("model", c.cfg.Model),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, apperrors.NewUpstreamError("insight generation failed", err)
	}

	c.metrics.InsightRequest(ctx, "success", duration)
	c.logger.InfoContext(ctx, "insights generated",
		slog.String("model", c.cfg.Model),
		slog.Duration("duration", duration),
		slog.Bool("shared", shared))
	return cloneReport(v.(*Report)), nil
}

func (c *Client) cacheKey(question string, kpis json.RawMessage) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, kpis); err != nil {
		compact.Write(kpis)
	}
	h := sha256.New()
	h.Write([]byte(c.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(question))
	h.Write([]byte{0})
	h.Write(compact.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}

func cloneReport(r *Report) *Report {
	out := *r
	out.Insights = append([]string(nil), r.Insights...)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	if out.Insights == nil {
		out.Insights = []string{}
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	return &out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete performs one chat completion call.
func (c *Client) complete(ctx context.Context, content string) (*Report, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxOutputTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		} else if len(respBody) > 0 {
			msg = string(respBody[:min(len(respBody), maxErrorBody)])
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("completion contained no message")
	}

	return parseReport(parsed.Choices[0].Message.Content)
}
