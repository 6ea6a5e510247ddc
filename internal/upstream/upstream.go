// Package upstream is the HTTP client for the core API. Every call yields
// either a *Response or an *Error; there are no retries.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/request"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxBodyBytes bounds how much of an upstream body is buffered.
const maxBodyBytes = 10 << 20

// Request describes one call to the core API.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          []byte
}

// Response is a successful (2xx/3xx) upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Error is the failure half of an upstream result. Status is zero and
// Header nil when no response was received.
type Error struct {
	Status int
	Header http.Header
	Body   []byte
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d)", e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode is the status to relay to the caller: the upstream status, or
// 500 when there was none.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// NewError builds an Error with a {"message": ...} body.
func NewError(status int, message string, cause error) *Error {
	body, _ := json.Marshal(map[string]string{"message": message})
	return &Error{Status: status, Body: body, Err: cause}
}

// AsError extracts an *Error from err, wrapping unknown errors as a 500.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr
	}
	return &Error{Err: err}
}

// Client calls the core API under a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a core API client. Outbound requests are traced.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log,
	}
}

// BaseURL returns the core API endpoint, including the version prefix.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req. The returned error, when non-nil, is always an *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}
	if id := request.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(request.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("upstream_request_failed",
			zap.String("method", req.Method),
			zap.String("path", logger.SanitizePath(req.Path)),
			zap.String("error", logger.SanitizeError(err)),
		)
		return nil, &Error{Err: fmt.Errorf("request to %s failed: %w", logger.SanitizeURL(target), err)}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("upstream_body_close_failed", zap.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("upstream_response",
		zap.String("method", req.Method),
		zap.String("path", logger.SanitizePath(req.Path)),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   respBody,
			Err:    fmt.Errorf("%s %s returned status %d", req.Method, logger.SanitizePath(req.Path), resp.StatusCode),
		}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// Ping reports whether the core API answers at all. Any HTTP response,
// whatever its status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("core API unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.Body.Close()
}
