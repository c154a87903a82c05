package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultIntegrationType = "hubspot"
	MaxPageSize            = 100
)

type OAuthConfig struct {
	ClientID        string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret    string        `koanf:"client_secret" mapstructure:"client_secret"`
	AuthURL         string        `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL        string        `koanf:"token_url" mapstructure:"token_url"`
	RedirectURI     string        `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	Scopes          []string      `koanf:"scopes" mapstructure:"scopes"`
	StateSigningKey string        `koanf:"state_signing_key" mapstructure:"state_signing_key"`
	StateTTL        time.Duration `koanf:"state_ttl" mapstructure:"state_ttl"`
	ExchangeTimeout time.Duration `koanf:"exchange_timeout" mapstructure:"exchange_timeout"`
}

type APIConfig struct {
	BaseURL        string        `koanf:"base_url" mapstructure:"base_url"`
	AccountPath    string        `koanf:"account_path" mapstructure:"account_path"`
	ObjectsPath    string        `koanf:"objects_path" mapstructure:"objects_path"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	PageSize       int           `koanf:"page_size" mapstructure:"page_size"`
	MaxPages       int           `koanf:"max_pages" mapstructure:"max_pages"`
}

type FrontendConfig struct {
	RedirectURL string `koanf:"redirect_url" mapstructure:"redirect_url"`
}

type RefreshConfig struct {
	Skew    time.Duration `koanf:"skew" mapstructure:"skew"`
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type IdentityConfig struct {
	URL      string        `koanf:"url" mapstructure:"url"`
	APIKey   string        `koanf:"api_key" mapstructure:"api_key"`
	Timeout  time.Duration `koanf:"timeout" mapstructure:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr" mapstructure:"addr"`
	AllowedOrigins  []string      `koanf:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver        string `koanf:"driver" mapstructure:"driver"`
	DSN           string `koanf:"dsn" mapstructure:"dsn"`
	Debug         bool   `koanf:"debug" mapstructure:"debug"`
	EncryptionKey string `koanf:"encryption_key" mapstructure:"encryption_key"`
}

// Config is built once at startup and handed to every component. Nothing in
// the connector reads the environment directly.
type Config struct {
	IntegrationType string         `koanf:"integration_type" mapstructure:"integration_type"`
	OAuth           OAuthConfig    `koanf:"oauth" mapstructure:"oauth"`
	API             APIConfig      `koanf:"api" mapstructure:"api"`
	Frontend        FrontendConfig `koanf:"frontend" mapstructure:"frontend"`
	Refresh         RefreshConfig  `koanf:"refresh" mapstructure:"refresh"`
	Identity        IdentityConfig `koanf:"identity" mapstructure:"identity"`
	HTTP            HTTPConfig     `koanf:"http" mapstructure:"http"`
	Database        DatabaseConfig `koanf:"database" mapstructure:"database"`
}

func DefaultConfig() Config {
	return Config{
		IntegrationType: DefaultIntegrationType,
		OAuth: OAuthConfig{
			AuthURL:         "https://app.hubspot.com/oauth/authorize",
			TokenURL:        "https://api.hubapi.com/oauth/v1/token",
			Scopes:          []string{"oauth", "crm.objects.companies.read"},
			StateTTL:        10 * time.Minute,
			ExchangeTimeout: 15 * time.Second,
		},
		API: APIConfig{
			BaseURL:        "https://api.hubapi.com",
			AccountPath:    "/account-info/v3/details",
			ObjectsPath:    "/crm/v3/objects/companies",
			RequestTimeout: 20 * time.Second,
			PageSize:       MaxPageSize,
			MaxPages:       1,
		},
		Refresh: RefreshConfig{
			Skew:    60 * time.Second,
			Timeout: 15 * time.Second,
		},
		Identity: IdentityConfig{
			Timeout:  10 * time.Second,
			CacheTTL: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
	}
}

// Validate rejects configurations missing secrets or endpoints. Required
// values are never defaulted here.
func (c Config) Validate() error {
	missing := make([]string, 0, 6)
	if strings.TrimSpace(c.IntegrationType) == "" {
		missing = append(missing, "integration_type")
	}
	if strings.TrimSpace(c.OAuth.ClientID) == "" {
		missing = append(missing, "oauth.client_id")
	}
	if strings.TrimSpace(c.OAuth.ClientSecret) == "" {
		missing = append(missing, "oauth.client_secret")
	}
	if strings.TrimSpace(c.OAuth.RedirectURI) == "" {
		missing = append(missing, "oauth.redirect_uri")
	}
	if strings.TrimSpace(c.OAuth.AuthURL) == "" {
		missing = append(missing, "oauth.auth_url")
	}
	if strings.TrimSpace(c.OAuth.TokenURL) == "" {
		missing = append(missing, "oauth.token_url")
	}
	if strings.TrimSpace(c.Frontend.RedirectURL) == "" {
		missing = append(missing, "frontend.redirect_url")
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		missing = append(missing, "api.base_url")
	}
	if len(missing) > 0 {
		return ConfigurationError("core: missing required configuration: " + strings.Join(missing, ", "))
	}

	for field, raw := range map[string]string{
		"oauth.redirect_uri":    c.OAuth.RedirectURI,
		"oauth.auth_url":        c.OAuth.AuthURL,
		"oauth.token_url":       c.OAuth.TokenURL,
		"frontend.redirect_url": c.Frontend.RedirectURL,
		"api.base_url":          c.API.BaseURL,
	} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return ConfigurationError(fmt.Sprintf("core: %s must be an absolute url", field))
		}
	}

	if c.API.PageSize <= 0 || c.API.PageSize > MaxPageSize {
		return ConfigurationError(fmt.Sprintf("core: api.page_size must be between 1 and %d", MaxPageSize))
	}
	if c.API.MaxPages <= 0 {
		return ConfigurationError("core: api.max_pages must be positive")
	}
	if c.API.RequestTimeout <= 0 || c.OAuth.ExchangeTimeout <= 0 || c.Refresh.Timeout <= 0 {
		return ConfigurationError("core: outbound timeouts must be positive")
	}
	if c.Refresh.Skew < 0 {
		return ConfigurationError("core: refresh.skew must not be negative")
	}
	if strings.TrimSpace(c.OAuth.StateSigningKey) != "" && c.OAuth.StateTTL <= 0 {
		return ConfigurationError("core: oauth.state_ttl must be positive when state signing is enabled")
	}
	return nil
}
