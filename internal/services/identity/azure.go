package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ametnes/nesis-console/internal/models"
	"github.com/ametnes/nesis-console/internal/validation"
)

// AzureVerifier checks an MSAL token result against Microsoft Graph.
type AzureVerifier struct {
	graphURL   string
	httpClient *http.Client
}

// NewAzureVerifier creates a verifier calling graphURL (e.g. https://graph.microsoft.com).
func NewAzureVerifier(graphURL string, httpClient *http.Client) *AzureVerifier {
	return &AzureVerifier{
		graphURL:   strings.TrimRight(graphURL, "/"),
		httpClient: httpClient,
	}
}

// Verify fetches the caller's Graph profile with the access token and
// requires its mail to match the account username exactly.
func (v *AzureVerifier) Verify(ctx context.Context, result *models.AzureTokenResult) (*models.Identity, error) {
	if err := validation.ValidateAzureTokenResult(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.graphURL+"/v1.0/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: graph request failed: %v", ErrInvalidToken, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: graph returned status %d", ErrInvalidToken, resp.StatusCode)
	}

	var profile models.GraphProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: failed to decode graph profile: %v", ErrInvalidToken, err)
	}

	if profile.Mail != result.Account.Username {
		return nil, fmt.Errorf("%w: graph mail does not match account username", ErrInvalidToken)
	}

	return &models.Identity{
		Email: result.Account.Username,
		Name:  result.Account.Name,
	}, nil
}
