package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

const maxResponseBytes = 4 << 20

// Client posts conversation state to the brain endpoint.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
	newID      func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the bearer credential.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithModel sets the default model selector sent with each request.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithIDGenerator overrides how ids are minted for request ids and for
// effects that arrive without one.
func WithIDGenerator(fn func() string) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewClient creates a brain client posting to url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 45 * time.Second},
		logger:     logging.Default(),
		tracer:     otel.Tracer("concierge.internal.brain"),
		newID:      func() string { return "call_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts req and interprets the reply. Errors wrap ErrTransport or
// ErrMalformedResponse.
func (c *Client) Send(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := c.tracer.Start(ctx, "brain.send")
	defer span.End()

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Model == "" {
		req.Model = c.model
	}
	span.SetAttributes(
		attribute.String("brain.thread_id", req.ThreadID),
		attribute.String("brain.request_id", req.RequestID),
		attribute.Int("brain.messages", len(req.Messages)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("brain: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("brain: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("apikey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, errorDetail(raw))
		span.RecordError(err)
		return nil, err
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		span.RecordError(err)
		c.logger.Warn("brain reply not decodable", "thread_id", req.ThreadID, "request_id", req.RequestID, "error", err)
		return nil, err
	}

	reply, err := Interpret(decoded, c.newID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrMalformedResponse) {
			c.logger.Warn("brain reply rejected", "thread_id", req.ThreadID, "request_id", req.RequestID, "error", err)
		}
		return nil, err
	}

	c.logger.Debug("brain reply",
		"thread_id", req.ThreadID,
		"request_id", req.RequestID,
		"tool_calls", len(reply.ToolCalls),
		"has_content", reply.Content != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// NewID mints an id in the client's format.
func (c *Client) NewID() string {
	return c.newID()
}

func errorDetail(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return string(bytes.TrimSpace(raw))
}
