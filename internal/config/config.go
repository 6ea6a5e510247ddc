package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"gopkg.in/yaml.v3"
)

const (
	// ProfileProd selects production defaults; every secret must come from the environment.
	ProfileProd = "PROD"
	// ProfileDev selects local development defaults.
	ProfileDev = "DEV"

	defaultDevServiceEndpoint = "http://localhost:6000/v1"
	defaultAzureAuthority     = "https://login.microsoftonline.com/common/"
	defaultGraphURL           = "https://graph.microsoft.com"
	defaultGoogleJWKSURL      = "https://www.googleapis.com/oauth2/v3/certs"
)

// Config holds application configuration. It is built once by Load and
// never mutated afterwards; handlers receive the pieces they need.
type Config struct {
	Profile          string
	ServerPort       string
	AppHome          string
	FrontendURL      string
	EnableHSTS       bool
	ServiceEndpoint  string
	UpstreamTimeout  time.Duration
	RedisURL         string
	SessionRateLimit string
	TrustedProxies   []netip.Prefix
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	TrustToken       TrustToken
	Azure            AzureConfig
	Google           GoogleConfig
}

// TrustToken is the shared secret pair injected into downstream session
// requests once the BFF has verified an identity assertion.
type TrustToken struct {
	Key   string
	Value string
}

// AzureConfig holds Azure AD settings. Only the client-facing fields are
// ever published through the config endpoint.
type AzureConfig struct {
	Enabled                bool
	ClientID               string
	TenantID               string
	Authority              string
	RedirectURI            string
	CacheLocation          string
	StoreAuthStateInCookie bool
	Scopes                 []string
	GraphURL               string
}

// GoogleConfig holds Google OAuth settings.
type GoogleConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	JWKSURL      string
}

// LookupFunc resolves a configuration key. It mirrors os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load loads configuration from environment variables. When PROFILE_FILE
// names a YAML file, its top-level keys act as fallbacks for variables
// missing from the environment.
func Load() (*Config, error) {
	lookup := LookupFunc(os.LookupEnv)
	if path, ok := os.LookupEnv("PROFILE_FILE"); ok && path != "" {
		fileValues, err := readProfileFile(path)
		if err != nil {
			return nil, err
		}
		lookup = withFallback(lookup, fileValues)
	}
	return LoadFrom(lookup)
}

// LoadFrom builds a Config using lookup as the only source of values.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	src := source{lookup: lookup}

	profile := strings.ToUpper(src.getEnv("PROFILE", ProfileDev))
	if profile != ProfileProd {
		profile = ProfileDev
	}
	prod := profile == ProfileProd

	cfg := &Config{
		Profile:          profile,
		ServerPort:       src.getEnv("SERVER_PORT", "8000"),
		AppHome:          src.getEnv("APP_HOME", "client/build"),
		FrontendURL:      src.getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       src.getEnvBool("ENABLE_HSTS", false),
		UpstreamTimeout:  src.getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		RedisURL:         src.getEnv("REDIS_URL", ""),
		SessionRateLimit: src.getEnv("SESSION_RATE_LIMIT", "20-M"),
		ServerDebugMode:  src.getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      src.getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     src.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	proxies, err := parseTrustedProxies(src.getEnvList("TRUSTED_PROXIES", nil))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	apiURL := strings.TrimRight(src.getEnv("API_URL", ""), "/")
	switch {
	case apiURL != "":
		cfg.ServiceEndpoint = apiURL + "/v1"
	case prod:
		return nil, fmt.Errorf("API_URL is required for the %s profile", ProfileProd)
	default:
		cfg.ServiceEndpoint = defaultDevServiceEndpoint
	}

	if prod {
		cfg.TrustToken = TrustToken{
			Key:   src.getEnv("NESIS_OAUTH_TOKEN_KEY", ""),
			Value: src.getEnv("NESIS_OAUTH_TOKEN_VALUE", ""),
		}
	} else {
		cfg.TrustToken = TrustToken{
			Key:   src.getEnv("NESIS_OAUTH_TOKEN_KEY", "___nesis_oauth_token_key___"),
			Value: src.getEnv("NESIS_OAUTH_TOKEN_VALUE", "___nesis_oauth_token_value___"),
		}
	}
	if cfg.TrustToken.Key == "" || cfg.TrustToken.Value == "" {
		return nil, fmt.Errorf("NESIS_OAUTH_TOKEN_KEY and NESIS_OAUTH_TOKEN_VALUE are required")
	}

	cacheLocation := "localStorage"
	redirectURI := "http://localhost:3000/"
	if prod {
		cacheLocation = "sessionStorage"
		redirectURI = ""
	}

	cfg.Azure = AzureConfig{
		Enabled:                src.getEnvBool("NESIS_OAUTH_AZURE_ENABLED", false),
		ClientID:               src.getEnv("NESIS_OAUTH_AZURE_CLIENT_ID", ""),
		TenantID:               src.getEnv("NESIS_OAUTH_AZURE_TENANT_ID", ""),
		Authority:              src.getEnv("NESIS_OAUTH_AZURE_AUTHORITY", defaultAzureAuthority),
		RedirectURI:            src.getEnv("NESIS_OAUTH_AZURE_REDIRECTURI", redirectURI),
		CacheLocation:          src.getEnv("NESIS_OAUTH_AZURE_CACHELOCATION", cacheLocation),
		StoreAuthStateInCookie: src.getEnvBool("NESIS_OAUTH_AZURE_STOREAUTHSTATEINCOOKIE", false),
		Scopes:                 src.getEnvList("NESIS_OAUTH_AZURE_SCOPES", []string{"User.Read"}),
		GraphURL:               strings.TrimRight(src.getEnv("NESIS_GRAPH_URL", defaultGraphURL), "/"),
	}

	cfg.Google = GoogleConfig{
		Enabled:      src.getEnvBool("NESIS_OAUTH_GOOGLE_ENABLED", false),
		ClientID:     src.getEnv("NESIS_OAUTH_GOOGLE_CLIENT_ID", ""),
		ClientSecret: src.getEnv("NESIS_OAUTH_GOOGLE_CLIENT_SECRET", ""),
		RedirectURI:  src.getEnv("NESIS_OAUTH_GOOGLE_REDIRECTURI", redirectURI),
		TokenURL:     src.getEnv("NESIS_OAUTH_GOOGLE_TOKEN_URL", google.Endpoint.TokenURL),
		JWKSURL:      src.getEnv("NESIS_OAUTH_GOOGLE_JWKS_URL", defaultGoogleJWKSURL),
	}

	if cfg.Azure.Enabled && cfg.Azure.ClientID == "" {
		return nil, fmt.Errorf("NESIS_OAUTH_AZURE_CLIENT_ID is required when Azure sign-in is enabled")
	}
	if cfg.Google.Enabled && (cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "") {
		return nil, fmt.Errorf("NESIS_OAUTH_GOOGLE_CLIENT_ID and NESIS_OAUTH_GOOGLE_CLIENT_SECRET are required when Google sign-in is enabled")
	}

	return cfg, nil
}

func readProfileFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}
	return values, nil
}

func withFallback(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if value, ok := primary(key); ok && value != "" {
			return value, true
		}
		value, ok := fallback[key]
		return value, ok
	}
}

type source struct {
	lookup LookupFunc
}

func (s source) getEnv(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	if value, ok := s.lookup(key); ok && value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (s source) getEnvInt(key string, defaultValue int) int {
	if value, ok := s.lookup(key); ok && value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func (s source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok || value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := s.getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// parseTrustedProxies accepts CIDRs or bare addresses; a bare address
// becomes a single-host prefix.
func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (s source) getEnvList(key string, defaultValue []string) []string {
	value, ok := s.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
