// Package parser is the HTTP client for the CV parsing API.
package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/observability"
	"cvforge/internal/retry"
	"cvforge/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// timeoutUserMessage is shown when the parsing API cannot finish inside
// the request timeout; resaving as PDF usually simplifies the document
// enough to parse.
const timeoutUserMessage = "Complex file structure found, please save this resume as a PDF then upload again, this should solve the problem."

// Client sends documents to the parsing API. Requests carry a bounded
// timeout; 5xx responses are retried with exponential backoff while a
// timeout is surfaced immediately as user guidance instead of retried.
type Client struct {
	httpClient *http.Client
	cfg        *config.ParserConfig
	logger     *errors.Logger
	breaker    *gobreaker.CircuitBreaker[*types.CVRecord]
	tracer     trace.Tracer
	metrics    *observability.Metrics

	// sleep is swapped in tests to capture backoff sequences.
	sleep func(ctx context.Context, d time.Duration) error
}

type parseRequest struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
	Wait     bool   `json:"wait"`
}

// NewClient builds a parser client. A nil httpClient gets a default one
// with the configured request timeout.
func NewClient(cfg *config.ParserConfig, logger *errors.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger,
		breaker:    newBreaker(cfg, logger),
		tracer:     otel.Tracer("cvforge/parser"),
	}
}

// SetMetrics attaches retry counters. Safe to skip for unmetered runs.
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

func newBreaker(cfg *config.ParserConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[*types.CVRecord] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        "Parser",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
				failureRatio >= cfg.CircuitBreaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[*types.CVRecord](settings)
}

// Parse submits the document bytes and returns the parsed record. The
// error is recoverable (with user guidance) for timeouts and exhausted
// 5xx retries, fatal for any other non-2xx response.
func (c *Client) Parse(ctx context.Context, fileBytes []byte, filename string) (*types.CVRecord, error) {
	ctx, span := c.tracer.Start(ctx, "parser.parse",
		trace.WithAttributes(
			attribute.String("parser.filename", filename),
			attribute.Int("parser.file_size", len(fileBytes)),
		))
	defer span.End()

	payload, err := json.Marshal(parseRequest{
		Base64:   base64.StdEncoding.EncodeToString(fileBytes),
		Filename: filename,
		Wait:     true,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "encoding parse request", err)
	}

	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	base := c.cfg.BackoffBase
	if base <= 0 {
		base = time.Second
	}

	record, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retry.Exponential(base, 0),
		Retryable:   isRetryable,
		Sleep:       c.sleep,
		OnRetry: func(attempt int) {
			if c.metrics != nil {
				c.metrics.RecordParserRetry(ctx)
			}
			span.AddEvent("parser.retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		},
	}, func() (*types.CVRecord, error) {
		return c.execute(func() (*types.CVRecord, error) {
			return c.doRequest(ctx, payload)
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.CodeOf(err) == errors.ErrCodeParserUnavailable {
			return nil, errors.NewParserError(errors.ErrCodeParserUnavailable,
				"parsing service unavailable after retries", err).
				WithUserMessage("The CV parsing service is temporarily unavailable, please wait a couple of minutes and try again.")
		}
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return record, nil
}

func (c *Client) execute(fn func() (*types.CVRecord, error)) (*types.CVRecord, error) {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (*types.CVRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "building parse request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("parse request timed out", "timeout", c.cfg.Timeout.String())
			return nil, errors.NewParserError(errors.ErrCodeParserTimeout, "parse request timed out", err).
				WithUserMessage(timeoutUserMessage)
		}
		return nil, errors.NewNetworkError(errors.ErrCodeParserUnavailable, "parse request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeParserUnavailable, "reading parse response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var record types.CVRecord
		if err := json.Unmarshal(body, &record); err != nil {
			return nil, errors.NewParserError(errors.ErrCodeInvalidFormat, "parse response is not valid JSON", err)
		}
		return &record, nil
	case resp.StatusCode >= 500:
		c.logger.Warn("parsing service returned server error", "status", resp.StatusCode)
		return nil, errors.NewParserError(errors.ErrCodeParserUnavailable,
			fmt.Sprintf("parsing service returned %d", resp.StatusCode), nil).
			WithContext("status_code", resp.StatusCode)
	default:
		return nil, errors.NewParserError(errors.ErrCodeParserFailed,
			fmt.Sprintf("parsing service rejected request with %d", resp.StatusCode), nil).
			WithContext("status_code", resp.StatusCode)
	}
}

// isRetryable admits only server errors and transient network failures;
// timeouts and 4xx rejections go straight back to the caller.
func isRetryable(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrCodeParserUnavailable:
		return true
	case errors.ErrCodeParserTimeout:
		return false
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	return false
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
