// Package identity verifies third-party identity assertions presented by
// the browser and reduces them to a verified (email, name) pair.
package identity

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrInvalidToken is returned for any assertion that cannot be verified.
var ErrInvalidToken = errors.New("invalid access token")

// NewHTTPClient returns the traced client used for provider calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
