package core

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	credentialStore  CredentialStore
	companyStore     CompanyStore
	identityResolver IdentityResolver
	provider         Provider
	stateCodec       StateCodec
	fieldMapping     CompanyFieldMapping
	clock            func() time.Time
	refreshGroup     singleflight.Group
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("connector", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connector"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}
	if len(builder.fieldMapping.Properties()) == 0 {
		builder.fieldMapping = DefaultCompanyFieldMapping()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, MapError(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, MapError(err)
	}

	if builder.provider != nil {
		providerType := NewIntegrationKey("", builder.provider.IntegrationType()).IntegrationType
		if providerType != "" && providerType != NewIntegrationKey("", finalConfig.IntegrationType).IntegrationType {
			return nil, ConfigurationError("core: provider " + providerType + " does not match integration_type " + finalConfig.IntegrationType)
		}
	}

	if builder.stateCodec == nil {
		codec, codecErr := NewStateCodec(finalConfig.OAuth, builder.clock)
		if codecErr != nil {
			return nil, MapError(codecErr)
		}
		builder.stateCodec = codec
	}

	return &Service{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		credentialStore:  builder.credentialStore,
		companyStore:     builder.companyStore,
		identityResolver: builder.identityResolver,
		provider:         builder.provider,
		stateCodec:       builder.stateCodec,
		fieldMapping:     builder.fieldMapping,
		clock:            builder.clock,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) IntegrationType() string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.config.IntegrationType))
}

func (s *Service) now() time.Time {
	if s == nil || s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// resolveCaller maps a bearer credential to a user id through the identity
// backend.
func (s *Service) resolveCaller(ctx context.Context, bearer string) (string, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return "", AuthenticationError("missing bearer credential", nil)
	}
	if s.identityResolver == nil {
		return "", ConfigurationError("core: identity resolver is not configured")
	}
	userID, err := s.identityResolver.ResolveUser(ctx, bearer)
	if err != nil {
		if HasErrorCode(err, ErrorAuthentication) || HasErrorCode(err, ErrorRemoteTimeout) || HasErrorCode(err, ErrorRemoteFetchFailed) {
			return "", err
		}
		if IsTimeout(err) {
			return "", RemoteTimeoutError("identity lookup", err)
		}
		return "", AuthenticationError("invalid bearer credential", err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", AuthenticationError("identity backend returned no user", nil)
	}
	return userID, nil
}
