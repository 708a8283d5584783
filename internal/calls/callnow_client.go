package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// PlaceResult is the provider's acknowledgement of a placed call.
type PlaceResult struct {
	CallID         string
	ProviderCallID string
}

// Client posts Requests to the call-now endpoint.
type Client struct {
	url        string
	apiKey     string
	devToken   string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientConfig configures the call-now client.
type ClientConfig struct {
	URL        string
	APIKey     string
	DevToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewClient validates cfg and creates a call-now client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("calls: call-now url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		devToken:   cfg.DevToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type callNowResponse struct {
	OK     *bool  `json:"ok"`
	CallID string `json:"callId"`
	VapiID string `json:"vapiId"`
	Error  string `json:"error"`
	Call   *struct {
		ID         string `json:"id"`
		VapiCallID string `json:"vapi_call_id"`
		Status     string `json:"status"`
	} `json:"call"`
}

// Place posts req once. Any non-2xx status or ok:false reply is an error.
func (c *Client) Place(ctx context.Context, req Request) (PlaceResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PlaceResult{}, fmt.Errorf("calls: marshal call request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return PlaceResult{}, fmt.Errorf("calls: create call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("apikey", c.apiKey)
	}
	if c.devToken != "" {
		httpReq.Header.Set("x-dev-token", c.devToken)
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	c.logger.Info("placing call", "target", req.TargetName, "to", logging.MaskPhone(req.TargetPhone), "source", req.Source)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return PlaceResult{}, fmt.Errorf("calls: call-now request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var decoded callNowResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(raw))
		if decodeErr == nil && decoded.Error != "" {
			detail = decoded.Error
		}
		return PlaceResult{}, fmt.Errorf("calls: call-now returned %d: %s", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return PlaceResult{}, fmt.Errorf("calls: decode call-now response: %w", decodeErr)
	}
	if decoded.OK != nil && !*decoded.OK {
		reason := decoded.Error
		if reason == "" {
			reason = "call-now failed"
		}
		return PlaceResult{}, fmt.Errorf("calls: %s", reason)
	}

	result := PlaceResult{CallID: decoded.CallID, ProviderCallID: decoded.VapiID}
	if decoded.Call != nil {
		if result.CallID == "" {
			result.CallID = decoded.Call.ID
		}
		if result.ProviderCallID == "" {
			result.ProviderCallID = decoded.Call.VapiCallID
		}
	}
	return result, nil
}
