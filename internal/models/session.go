package models

import "encoding/json"

// Top-level keys of a session creation request that select the identity provider.
const (
	SessionKeyAzure  = "azure"
	SessionKeyGoogle = "google"
)

// AzureAccount is the account object of an MSAL token result.
type AzureAccount struct {
	Username string `json:"username" validate:"required"`
	Name     string `json:"name"`
}

// AzureTokenResult is the subset of the MSAL authentication result the
// browser forwards. Everything except the access token and account claims
// is ignored.
type AzureTokenResult struct {
	AccessToken string       `json:"accessToken" validate:"required"`
	Account     AzureAccount `json:"account"`
}

// Identity is a verified (name, email) pair taken from provider claims.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GraphProfile is the part of the Microsoft Graph /me response used for verification.
type GraphProfile struct {
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// SessionRequest is a decoded session creation body. Values stay raw so the
// password path can forward the original bytes untouched.
type SessionRequest map[string]json.RawMessage

// Has reports whether key is present with a non-null value.
func (r SessionRequest) Has(key string) bool {
	v, ok := r[key]
	return ok && string(v) != "null"
}
