package models

// PublicConfig is what GET /api/config returns to the browser. It must
// never carry secrets.
type PublicConfig struct {
	Version string     `json:"version"`
	Auth    AuthConfig `json:"auth"`
}

// AuthConfig lists OAuth feature flags and public client settings.
type AuthConfig struct {
	OAuthAzureEnabled                bool     `json:"OAUTH_AZURE_ENABLED"`
	OAuthAzureClientID               string   `json:"OAUTH_AZURE_CLIENT_ID"`
	OAuthAzureAuthority              string   `json:"OAUTH_AZURE_AUTHORITY"`
	OAuthAzureRedirectURI            string   `json:"OAUTH_AZURE_REDIRECTURI"`
	OAuthAzureCacheLocation          string   `json:"OAUTH_AZURE_CACHELOCATION"`
	OAuthAzureStoreAuthStateInCookie bool     `json:"OAUTH_AZURE_STOREAUTHSTATEINCOOKIE"`
	OAuthAzureScopes                 []string `json:"OAUTH_AZURE_SCOPES"`
	OAuthGoogleEnabled               bool     `json:"OAUTH_GOOGLE_ENABLED"`
	OAuthGoogleClientID              string   `json:"OAUTH_GOOGLE_CLIENT_ID"`
}
