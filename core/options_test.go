package core

import (
	"context"
	"testing"
	"time"
)

func TestLoadConfig_LayersRawValuesOverDefaults(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), mapRawLoader{values: map[string]any{
		"oauth": map[string]any{
			"client_id":     "client_raw",
			"client_secret": "secret_raw",
			"redirect_uri":  "https://connector.example/auth/callback",
		},
		"frontend": map[string]any{"redirect_url": "https://app.example/done"},
		"api":      map[string]any{"max_pages": 3},
	}}, Config{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OAuth.ClientID != "client_raw" || cfg.API.MaxPages != 3 {
		t.Fatalf("expected raw values applied, got %+v", cfg)
	}
	if cfg.API.PageSize != MaxPageSize || cfg.OAuth.TokenURL == "" {
		t.Fatalf("expected defaults retained, got %+v", cfg.API)
	}
	if cfg.Refresh.Skew != 60*time.Second {
		t.Fatalf("expected default skew, got %v", cfg.Refresh.Skew)
	}
}

func TestLoadConfig_RuntimeOverridesRaw(t *testing.T) {
	runtime := Config{OAuth: OAuthConfig{ClientID: "client_runtime"}}
	cfg, err := LoadConfig(context.Background(), mapRawLoader{values: map[string]any{
		"oauth": map[string]any{
			"client_id":     "client_raw",
			"client_secret": "secret_raw",
			"redirect_uri":  "https://connector.example/auth/callback",
		},
		"frontend": map[string]any{"redirect_url": "https://app.example/done"},
	}}, runtime)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OAuth.ClientID != "client_runtime" {
		t.Fatalf("expected runtime override, got %q", cfg.OAuth.ClientID)
	}
	if cfg.OAuth.ClientSecret != "secret_raw" {
		t.Fatalf("expected raw secret retained, got %q", cfg.OAuth.ClientSecret)
	}
}

func TestLoadConfig_MissingSecretsIsConfigurationError(t *testing.T) {
	_, err := LoadConfig(context.Background(), mapRawLoader{values: map[string]any{}}, Config{})
	if !HasErrorCode(err, ErrorConfiguration) {
		t.Fatalf("expected %s, got %v", ErrorConfiguration, err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "relative_redirect", mutate: func(c *Config) { c.Frontend.RedirectURL = "/settings" }},
		{name: "page_size_too_large", mutate: func(c *Config) { c.API.PageSize = 500 }},
		{name: "zero_max_pages", mutate: func(c *Config) { c.API.MaxPages = 0 }},
		{name: "negative_skew", mutate: func(c *Config) { c.Refresh.Skew = -time.Second }},
		{name: "signing_without_ttl", mutate: func(c *Config) { c.OAuth.StateSigningKey = "k"; c.OAuth.StateTTL = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !HasErrorCode(err, ErrorConfiguration) {
				t.Fatalf("expected %s, got %v", ErrorConfiguration, err)
			}
		})
	}
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("expected test config valid: %v", err)
	}
}
