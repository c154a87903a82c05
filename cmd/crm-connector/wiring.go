package main

import (
	"context"
	"net/http"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/identity"
	"github.com/goliatone/go-crm-connector/providers/hubspot"
	"github.com/goliatone/go-crm-connector/security"
	sqlstore "github.com/goliatone/go-crm-connector/store/sql"
)

type runtime struct {
	config  core.Config
	service *core.Service
	client  *persistence.Client
}

func (r *runtime) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func openStores(db core.DatabaseConfig) (*persistence.Client, *sqlstore.RepositoryFactory, error) {
	client, err := sqlstore.NewPersistenceClient(db)
	if err != nil {
		return nil, nil, err
	}

	var opts []sqlstore.FactoryOption
	if key := strings.TrimSpace(db.EncryptionKey); key != "" {
		tokenCipher, err := security.NewAppKeyTokenCipherFromString(key)
		if err != nil {
			_ = client.Close()
			return nil, nil, core.ConfigurationError("database.encryption_key: " + err.Error())
		}
		opts = append(opts, sqlstore.WithTokenCipher(tokenCipher))
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, factory, nil
}

// buildRuntime wires provider, identity, stores and the service for cfg.
func buildRuntime(_ context.Context, cfg core.Config, state *app) (*runtime, error) {
	if !strings.EqualFold(strings.TrimSpace(cfg.IntegrationType), hubspot.IntegrationType) {
		return nil, core.ConfigurationError("unsupported integration type " + cfg.IntegrationType)
	}

	httpClient := &http.Client{}
	provider, err := hubspot.New(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	var resolver core.IdentityResolver
	if strings.TrimSpace(cfg.Identity.URL) != "" {
		base, err := identity.NewResolverFromConfig(cfg.Identity, httpClient)
		if err != nil {
			return nil, err
		}
		resolver = base
		if cfg.Identity.CacheTTL > 0 {
			cacheService, err := identity.NewUserCacheService(cfg.Identity.CacheTTL)
			if err != nil {
				return nil, err
			}
			cached, err := identity.NewCachedResolver(base, cacheService)
			if err != nil {
				return nil, err
			}
			resolver = cached
		}
	}

	client, factory, err := openStores(cfg.Database)
	if err != nil {
		return nil, err
	}

	opts := []core.Option{
		core.WithProvider(provider),
		core.WithCredentialStore(factory.CredentialStore()),
		core.WithCompanyStore(factory.CompanyStore()),
		core.WithLoggerProvider(state.provider),
	}
	if resolver != nil {
		opts = append(opts, core.WithIdentityResolver(resolver))
	}
	service, err := core.NewService(cfg, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &runtime{config: cfg, service: service, client: client}, nil
}
