// Package client is a Go client for the Nesis console API. It follows the
// browser console's contract: requests go to {BaseURL}/api/..., the stored
// session token is sent as a bearer token, and any 401 ends the session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiPrefix = "/api"

// Client is a client for the console API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      SessionStore
	// OnUnauthorized runs after a 401 response has cleared the session.
	OnUnauthorized func()
}

// Config holds configuration for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Store   SessionStore
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		Store: cfg.Store,
	}
}

// Error is a non-2xx response from the console API.
type Error struct {
	Status int
	Body   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message())
}

// Message extracts a human readable message: the body's "message" field
// when present, else the raw body, else the status text.
func (e *Error) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if trimmed := strings.TrimSpace(string(e.Body)); trimmed != "" {
		return trimmed
	}
	return http.StatusText(e.Status)
}

// Get performs GET {BaseURL}/api/{endpoint}?{query} and decodes into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.doRequest(ctx, http.MethodGet, apiPrefix+"/"+strings.TrimLeft(endpoint, "/"), query, nil, out)
}

// Post performs POST {BaseURL}/api/{endpoint} with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, apiPrefix+"/"+strings.TrimLeft(endpoint, "/"), nil, body, out)
}

// Put performs PUT {BaseURL}/api/{endpoint} with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.doRequest(ctx, http.MethodPut, apiPrefix+"/"+strings.TrimLeft(endpoint, "/"), nil, body, out)
}

// Delete performs DELETE {BaseURL}/api/{endpoint}?{query}.
func (c *Client) Delete(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.doRequest(ctx, http.MethodDelete, apiPrefix+"/"+strings.TrimLeft(endpoint, "/"), query, nil, out)
}

// Health calls /healthz, optionally in extended mode. A 503 is returned as
// an *Error whose body holds the per-check detail.
func (c *Client) Health(ctx context.Context, extended bool) (map[string]any, error) {
	var query url.Values
	if extended {
		query = url.Values{"mode": []string{"extended"}}
	}
	var out map[string]any
	err := c.doRequest(ctx, http.MethodGet, "/healthz", query, nil, &out)
	return out, err
}

// doRequest helper to perform authenticated requests.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session, err := c.Store.Load(); err == nil && session != nil && session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode == http.StatusUnauthorized {
			c.expire()
		}
		return &Error{Status: resp.StatusCode, Body: respBody}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) expire() {
	_ = c.Store.Clear()
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}
