package handlers

import (
	"net/http"

	"github.com/ametnes/nesis-console/internal/config"
	"github.com/ametnes/nesis-console/internal/models"
	"github.com/gorilla/mux"
)

// ConfigHandler serves the browser-visible configuration
type ConfigHandler struct {
	public models.PublicConfig
}

// NewConfigHandler creates a config handler. Only client-facing settings
// are copied out of cfg.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{public: PublicConfig(cfg)}
}

// PublicConfig builds the public view of cfg.
func PublicConfig(cfg *config.Config) models.PublicConfig {
	scopes := append([]string(nil), cfg.Azure.Scopes...)
	return models.PublicConfig{
		Version: "v1",
		Auth: models.AuthConfig{
			OAuthAzureEnabled:                cfg.Azure.Enabled,
			OAuthAzureClientID:               cfg.Azure.ClientID,
			OAuthAzureAuthority:              cfg.Azure.Authority,
			OAuthAzureRedirectURI:            cfg.Azure.RedirectURI,
			OAuthAzureCacheLocation:          cfg.Azure.CacheLocation,
			OAuthAzureStoreAuthStateInCookie: cfg.Azure.StoreAuthStateInCookie,
			OAuthAzureScopes:                 scopes,
			OAuthGoogleEnabled:               cfg.Google.Enabled,
			OAuthGoogleClientID:              cfg.Google.ClientID,
		},
	}
}

// RegisterRoutes registers config routes on the given router
func (h *ConfigHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/config", h.GetConfig).Methods("GET")
}

// GetConfig returns the public configuration
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.public)
}
