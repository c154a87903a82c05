package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-crm-connector/core"
)

// tomlConfigLoader feeds a TOML file into the config layer stack. An empty
// path yields an empty layer.
type tomlConfigLoader struct {
	path string
}

func (l tomlConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.path)
	if path == "" {
		return map[string]any{}, nil
	}
	// #nosec G304 - path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ConfigurationError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, core.ConfigurationError(fmt.Sprintf("parse config file %q: %v", path, err))
	}
	return raw, nil
}

// connectorFlags collects the runtime layer. Unset flags leave the file and
// default layers in place.
type connectorFlags struct {
	configPath string
	runtime    core.Config
	pageSize   int
	maxPages   int
}

func (f *connectorFlags) Flags() []cli.Flag {
	rt := &f.runtime
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "Path to a TOML config file", Sources: envVars("CONFIG"), Destination: &f.configPath},
		&cli.StringFlag{Name: "integration-type", Usage: "Integration type key", Sources: envVars("INTEGRATION_TYPE"), Destination: &rt.IntegrationType},

		&cli.StringFlag{Name: "client-id", Category: "OAuth", Usage: "OAuth client id", Sources: envVars("CLIENT_ID"), Destination: &rt.OAuth.ClientID},
		&cli.StringFlag{Name: "client-secret", Category: "OAuth", Usage: "OAuth client secret", Sources: envVars("CLIENT_SECRET"), Destination: &rt.OAuth.ClientSecret},
		&cli.StringFlag{Name: "auth-url", Category: "OAuth", Usage: "Provider consent URL", Sources: envVars("AUTH_URL"), Destination: &rt.OAuth.AuthURL},
		&cli.StringFlag{Name: "token-url", Category: "OAuth", Usage: "Provider token URL", Sources: envVars("TOKEN_URL"), Destination: &rt.OAuth.TokenURL},
		&cli.StringFlag{Name: "redirect-uri", Category: "OAuth", Usage: "Registered OAuth redirect URI", Sources: envVars("REDIRECT_URI"), Destination: &rt.OAuth.RedirectURI},
		&cli.StringSliceFlag{Name: "scope", Category: "OAuth", Usage: "Requested scope (repeatable)", Sources: envVars("SCOPES"), Destination: &rt.OAuth.Scopes},
		&cli.StringFlag{Name: "state-signing-key", Category: "OAuth", Usage: "Enables signed, expiring OAuth state", Sources: envVars("STATE_SIGNING_KEY"), Destination: &rt.OAuth.StateSigningKey},
		&cli.DurationFlag{Name: "state-ttl", Category: "OAuth", Usage: "Lifetime of signed OAuth state", Sources: envVars("STATE_TTL"), Destination: &rt.OAuth.StateTTL},

		&cli.StringFlag{Name: "api-base-url", Category: "CRM API", Usage: "CRM API base URL", Sources: envVars("API_BASE_URL"), Destination: &rt.API.BaseURL},
		&cli.DurationFlag{Name: "api-timeout", Category: "CRM API", Usage: "Per-call CRM API timeout", Sources: envVars("API_TIMEOUT"), Destination: &rt.API.RequestTimeout},
		&cli.IntFlag{Name: "page-size", Category: "CRM API", Usage: "Companies per page (max 100)", Sources: envVars("PAGE_SIZE"), Destination: &f.pageSize},
		&cli.IntFlag{Name: "max-pages", Category: "CRM API", Usage: "Pages fetched per sync", Sources: envVars("MAX_PAGES"), Destination: &f.maxPages},

		&cli.StringFlag{Name: "frontend-redirect-url", Usage: "Frontend location for callback redirects", Sources: envVars("FRONTEND_REDIRECT_URL"), Destination: &rt.Frontend.RedirectURL},
		&cli.DurationFlag{Name: "refresh-skew", Usage: "Refresh tokens expiring within this window", Sources: envVars("REFRESH_SKEW"), Destination: &rt.Refresh.Skew},

		&cli.StringFlag{Name: "identity-url", Category: "Identity", Usage: "Identity backend user endpoint", Sources: envVars("IDENTITY_URL"), Destination: &rt.Identity.URL},
		&cli.StringFlag{Name: "identity-api-key", Category: "Identity", Usage: "Identity backend API key", Sources: envVars("IDENTITY_API_KEY"), Destination: &rt.Identity.APIKey},
		&cli.DurationFlag{Name: "identity-cache-ttl", Category: "Identity", Usage: "Cache lifetime for resolved bearers", Sources: envVars("IDENTITY_CACHE_TTL"), Destination: &rt.Identity.CacheTTL},

		&cli.StringFlag{Name: "addr", Category: "HTTP", Usage: "HTTP listen address", Sources: envVars("ADDR"), Destination: &rt.HTTP.Addr},
		&cli.StringSliceFlag{Name: "allowed-origin", Category: "HTTP", Usage: "CORS allowed origin (repeatable)", Sources: envVars("ALLOWED_ORIGINS"), Destination: &rt.HTTP.AllowedOrigins},

		&cli.StringFlag{Name: "db-driver", Category: "Database", Usage: "Database driver (postgres, sqlite)", Sources: envVars("DB_DRIVER"), Destination: &rt.Database.Driver},
		&cli.StringFlag{Name: "db-dsn", Category: "Database", Usage: "Database connection string", Sources: envVars("DB_DSN"), Destination: &rt.Database.DSN},
		&cli.BoolFlag{Name: "db-debug", Category: "Database", Usage: "Log SQL queries", Sources: envVars("DB_DEBUG"), Destination: &rt.Database.Debug},
		&cli.StringFlag{Name: "encryption-key", Category: "Database", Usage: "Seals stored tokens when set", Sources: envVars("ENCRYPTION_KEY"), Destination: &rt.Database.EncryptionKey},
	}
}

// Load resolves defaults, the optional TOML file and the flag layer into a
// validated Config.
func (f *connectorFlags) Load(ctx context.Context) (core.Config, error) {
	runtime := f.runtime
	runtime.API.PageSize = f.pageSize
	runtime.API.MaxPages = f.maxPages
	return core.LoadConfig(ctx, tomlConfigLoader{path: f.configPath}, runtime)
}

// Database resolves only the database section, for commands that do not
// need OAuth settings.
func (f *connectorFlags) Database(ctx context.Context) (core.DatabaseConfig, error) {
	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(tomlConfigLoader{path: f.configPath}).Load(ctx, defaults)
	if err != nil {
		return core.DatabaseConfig{}, err
	}
	db := loaded.Database
	if v := strings.TrimSpace(f.runtime.Database.Driver); v != "" {
		db.Driver = v
	}
	if v := strings.TrimSpace(f.runtime.Database.DSN); v != "" {
		db.DSN = v
	}
	if f.runtime.Database.Debug {
		db.Debug = true
	}
	if v := strings.TrimSpace(f.runtime.Database.EncryptionKey); v != "" {
		db.EncryptionKey = v
	}
	if strings.TrimSpace(db.DSN) == "" {
		return core.DatabaseConfig{}, core.ConfigurationError("database dsn is required")
	}
	return db, nil
}

// shutdownTimeout falls back to the default when unset.
func shutdownTimeout(cfg core.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return core.DefaultConfig().HTTP.ShutdownTimeout
}
