// Package agent is the HTTP transport to the streaming agent endpoint.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"chatstream/internal/domain"
	"chatstream/internal/infra/config"
	"chatstream/internal/infra/tracer"
)

// RequestIDHeader carries a per-request UUID for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Client POSTs the conversation to the agent and hands back the response
// body as the stream's byte cursor.
type Client struct {
	endpoint string
	http     *http.Client
	headers  map[string]string
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) ClientOption {
	return func(cl *Client) { cl.headers[key] = value }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg config.AgentConfig, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: cfg.Endpoint,
		headers:  make(map[string]string),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg)
	}
	return c
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

// Open sends req and returns the open response body. Every failure wraps
// domain.ErrTransportOpen; a response without a body yields
// domain.ErrMissingCursor. The caller must close the body.
func (c *Client) Open(ctx context.Context, req domain.AgentRequest) (io.ReadCloser, error) {
	requestID := uuid.NewString()
	ctx, span := tracer.StartSpan(ctx, "agent.open",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			tracer.StringAttr("agent.request_id", requestID),
			tracer.IntAttr("agent.messages", len(req.Input.Messages)),
		),
	)
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		err = fmt.Errorf("%w: marshal request: %w", domain.ErrTransportOpen, err)
		tracer.RecordError(span, err)
		return nil, err
	}

	headers := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers[RequestIDHeader] = requestID

	resp, err := doStreamRequest(ctx, c.http, c.endpoint, body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Debug("agent open failed", "request_id", requestID, "error", err)
		return nil, err
	}

	span.SetAttributes(tracer.IntAttr("http.status_code", resp.StatusCode))
	// An empty 200 is a valid, empty stream; 204 promises no body at all.
	if resp.Body == nil || resp.StatusCode == http.StatusNoContent {
		if resp.Body != nil {
			resp.Body.Close()
		}
		err := fmt.Errorf("%w: status %d", domain.ErrMissingCursor, resp.StatusCode)
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	c.logger.Debug("agent stream opened",
		"request_id", requestID,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)
	return resp.Body, nil
}

// doStreamRequest performs a JSON POST that expects an event stream.
// It returns the open response for any 2xx status.
func doStreamRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrTransportOpen, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportOpen, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}
	return httpResp, nil
}
