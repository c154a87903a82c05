package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig    Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	credentialStore  CredentialStore
	companyStore     CompanyStore
	identityResolver IdentityResolver
	provider         Provider
	stateCodec       StateCodec
	fieldMapping     CompanyFieldMapping
	clock            func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithCredentialStore(store CredentialStore) Option {
	return func(b *serviceBuilder) {
		b.credentialStore = store
	}
}

func WithCompanyStore(store CompanyStore) Option {
	return func(b *serviceBuilder) {
		b.companyStore = store
	}
}

func WithIdentityResolver(resolver IdentityResolver) Option {
	return func(b *serviceBuilder) {
		b.identityResolver = resolver
	}
}

func WithProvider(provider Provider) Option {
	return func(b *serviceBuilder) {
		b.provider = provider
	}
}

// WithStateCodec overrides the codec selected from oauth.state_signing_key.
func WithStateCodec(codec StateCodec) Option {
	return func(b *serviceBuilder) {
		b.stateCodec = codec
	}
}

func WithCompanyFieldMapping(mapping CompanyFieldMapping) Option {
	return func(b *serviceBuilder) {
		b.fieldMapping = mapping
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("connector", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		fieldMapping:    DefaultCompanyFieldMapping(),
		clock:           time.Now,
	}
}

// StaticConfigLoader serves a fixed raw configuration map.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load decodes the raw layer over defaults. Validation is deferred to the
// resolver because runtime values may still supply required fields.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, ConfigurationError("core: decode configuration: " + err.Error())
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig resolves defaults, the raw loader layer, and runtime overrides
// into a validated Config.
func LoadConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded, err := NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString(layer, "integration_type", cfg.IntegrationType, includeZero)

	oauth := map[string]any{}
	setString(oauth, "client_id", cfg.OAuth.ClientID, includeZero)
	setString(oauth, "client_secret", cfg.OAuth.ClientSecret, includeZero)
	setString(oauth, "auth_url", cfg.OAuth.AuthURL, includeZero)
	setString(oauth, "token_url", cfg.OAuth.TokenURL, includeZero)
	setString(oauth, "redirect_uri", cfg.OAuth.RedirectURI, includeZero)
	setStrings(oauth, "scopes", cfg.OAuth.Scopes, includeZero)
	setString(oauth, "state_signing_key", cfg.OAuth.StateSigningKey, includeZero)
	setDuration(oauth, "state_ttl", cfg.OAuth.StateTTL, includeZero)
	setDuration(oauth, "exchange_timeout", cfg.OAuth.ExchangeTimeout, includeZero)
	setSection(layer, "oauth", oauth)

	api := map[string]any{}
	setString(api, "base_url", cfg.API.BaseURL, includeZero)
	setString(api, "account_path", cfg.API.AccountPath, includeZero)
	setString(api, "objects_path", cfg.API.ObjectsPath, includeZero)
	setDuration(api, "request_timeout", cfg.API.RequestTimeout, includeZero)
	setInt(api, "page_size", cfg.API.PageSize, includeZero)
	setInt(api, "max_pages", cfg.API.MaxPages, includeZero)
	setSection(layer, "api", api)

	frontend := map[string]any{}
	setString(frontend, "redirect_url", cfg.Frontend.RedirectURL, includeZero)
	setSection(layer, "frontend", frontend)

	refresh := map[string]any{}
	setDuration(refresh, "skew", cfg.Refresh.Skew, includeZero)
	setDuration(refresh, "timeout", cfg.Refresh.Timeout, includeZero)
	setSection(layer, "refresh", refresh)

	identity := map[string]any{}
	setString(identity, "url", cfg.Identity.URL, includeZero)
	setString(identity, "api_key", cfg.Identity.APIKey, includeZero)
	setDuration(identity, "timeout", cfg.Identity.Timeout, includeZero)
	setDuration(identity, "cache_ttl", cfg.Identity.CacheTTL, includeZero)
	setSection(layer, "identity", identity)

	httpCfg := map[string]any{}
	setString(httpCfg, "addr", cfg.HTTP.Addr, includeZero)
	setStrings(httpCfg, "allowed_origins", cfg.HTTP.AllowedOrigins, includeZero)
	setDuration(httpCfg, "shutdown_timeout", cfg.HTTP.ShutdownTimeout, includeZero)
	setSection(layer, "http", httpCfg)

	database := map[string]any{}
	setString(database, "driver", cfg.Database.Driver, includeZero)
	setString(database, "dsn", cfg.Database.DSN, includeZero)
	setString(database, "encryption_key", cfg.Database.EncryptionKey, includeZero)
	if includeZero || cfg.Database.Debug {
		database["debug"] = cfg.Database.Debug
	}
	setSection(layer, "database", database)
	return layer
}

func setSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}

func setString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func setStrings(layer map[string]any, key string, value []string, includeZero bool) {
	if includeZero || len(value) > 0 {
		layer[key] = append([]string(nil), value...)
	}
}

func setDuration(layer map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func setInt(layer map[string]any, key string, value int, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}
