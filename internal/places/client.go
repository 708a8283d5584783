package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wolfman30/concierge-dialer/internal/phone"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// ErrNoPhone is returned when a place exists but carries no usable number.
var ErrNoPhone = errors.New("places: place has no phone number")

// Place is a place-details record.
type Place struct {
	PlaceID        string  `json:"place_id"`
	Name           string  `json:"name"`
	Address        string  `json:"formatted_address"`
	E164Phone      string  `json:"e164_phone"`
	FormattedPhone string  `json:"formatted_phone"`
	Website        string  `json:"website"`
	Rating         float64 `json:"rating"`
}

// Phone returns the place's number in E.164, preferring e164_phone.
func (p Place) Phone() string {
	if e := phone.Normalize(p.E164Phone); e != "" {
		return e
	}
	return phone.Normalize(p.FormattedPhone)
}

// Client queries the place-details service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the bearer credential.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// NewClient creates a place-details client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Details fetches a place by id.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	if placeID == "" {
		return nil, fmt.Errorf("places: place id required")
	}
	q := url.Values{"place_id": {placeID}}

	var body struct {
		Place
		Result *Place `json:"result"`
	}
	if err := c.get(ctx, "/place-details", q, &body); err != nil {
		return nil, err
	}
	place := body.Place
	if body.Result != nil {
		place = *body.Result
	}
	if place.PlaceID == "" {
		place.PlaceID = placeID
	}
	return &place, nil
}

// Find searches for businesses by free-text query, optionally narrowed by
// city.
func (c *Client) Find(ctx context.Context, query, city string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	if city != "" {
		q.Set("city", city)
	}

	var body struct {
		Items []Place `json:"items"`
	}
	if err := c.get(ctx, "/find-business", q, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("places: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("places: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("places: %s failed with status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("places: decode %s response: %w", path, err)
	}
	return nil
}
