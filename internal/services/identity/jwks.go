package identity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSManager fetches a JSON Web Key Set and keeps it for ttl.
type JWKSManager struct {
	url        string
	httpClient *http.Client
	ttl        time.Duration

	mu      sync.RWMutex
	keys    jwk.Set
	expires time.Time
}

// NewJWKSManager creates a manager for the key set published at url
func NewJWKSManager(url string, httpClient *http.Client) *JWKSManager {
	return &JWKSManager{
		url:        url,
		httpClient: httpClient,
		ttl:        1 * time.Hour,
	}
}

// Keys returns the cached key set, refreshing it when it has expired.
func (m *JWKSManager) Keys(ctx context.Context) (jwk.Set, error) {
	m.mu.RLock()
	if m.keys != nil && time.Now().Before(m.expires) {
		keys := m.keys
		m.mu.RUnlock()
		return keys, nil
	}
	m.mu.RUnlock()

	keys, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.keys = keys
	m.expires = time.Now().Add(m.ttl)
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	keys, err := jwk.ParseReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
