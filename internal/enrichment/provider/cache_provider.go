package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
)

// CacheProvider serves lookups from Redis and fills it from the wrapped
// provider on a miss. Redis failures degrade to calling the provider.
type CacheProvider struct {
	next   DataProvider
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCacheProvider(next DataProvider, client *redis.Client, ttl time.Duration, log logger.Logger) *CacheProvider {
	if ttl <= 0 {
		ttl = constants.DefaultEnrichmentCacheTTL
	}
	return &CacheProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (p *CacheProvider) Fetch(ctx context.Context, domain string) (map[string]interface{}, error) {
	key := constants.CacheKeyPrefixEnrichment + domain

	val, err := p.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var result map[string]interface{}
		if jsonErr := json.Unmarshal([]byte(val), &result); jsonErr == nil {
			metrics.IncEnrichmentProviderRequest("cache", "hit")
			return result, nil
		}
		p.logger.WarnwCtx(ctx, "Discarding undecodable cached enrichment", "key", key)
	case errors.Is(err, redis.Nil):
		metrics.IncEnrichmentProviderRequest("cache", "miss")
	default:
		metrics.IncEnrichmentProviderRequest("cache", "error")
		p.logger.WarnwCtx(ctx, "Enrichment cache read failed", "key", key, "error", err)
	}

	result, err := p.next.Fetch(ctx, domain)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(result); err == nil {
		if err := p.client.Set(ctx, key, b, p.ttl).Err(); err != nil {
			p.logger.WarnwCtx(ctx, "Failed to cache enrichment data", "key", key, "error", err)
		}
	}
	return result, nil
}
