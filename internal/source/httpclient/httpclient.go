package httpclient

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is an HTTP client with optional Bearer auth and a base URL.
// Requests are not retried; a failed call surfaces its error immediately.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for baseURL. An empty token sends no Authorization
// header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON sends a GET request and unmarshals the JSON response into dest.
// Returns *APIError for non-2xx responses.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

// GetXML sends a GET request and unmarshals the XML response into dest.
// Returns *APIError for non-2xx responses.
func (c *Client) GetXML(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	return xml.Unmarshal(body, dest)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	bodyStr := string(body)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
}
