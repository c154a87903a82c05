package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-crm-connector/core"
)

const userCacheKeyPrefix = "crm-connector::identity::v1"

// CachedResolver memoizes successful bearer lookups. Failures are never
// cached, so a rejected or unreachable lookup is retried on the next request.
type CachedResolver struct {
	base  core.IdentityResolver
	cache repositorycache.CacheService
}

func NewCachedResolver(base core.IdentityResolver, cacheService repositorycache.CacheService) (*CachedResolver, error) {
	if base == nil {
		return nil, core.ConfigurationError("identity: base resolver is required")
	}
	if cacheService == nil {
		return nil, core.ConfigurationError("identity: cache service is required")
	}
	return &CachedResolver{base: base, cache: cacheService}, nil
}

func NewUserCacheService(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, core.ConfigurationError("identity: create user cache: " + err.Error())
	}
	return service, nil
}

// UserCacheKey hashes the bearer so raw credentials never become cache keys.
func UserCacheKey(bearer string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(bearer)))
	return userCacheKeyPrefix + "::" + hex.EncodeToString(sum[:])
}

func (r *CachedResolver) ResolveUser(ctx context.Context, bearer string) (string, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return "", core.ConfigurationError("identity: cached resolver is not configured")
	}
	if strings.TrimSpace(bearer) == "" {
		return "", core.AuthenticationError("missing bearer credential", nil)
	}
	return repositorycache.GetOrFetch(ctx, r.cache, UserCacheKey(bearer), func(ctx context.Context) (string, error) {
		return r.base.ResolveUser(ctx, bearer)
	})
}

var _ core.IdentityResolver = (*CachedResolver)(nil)
