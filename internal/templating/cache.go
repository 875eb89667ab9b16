package templating

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
)

type Store interface {
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
}

// CachedStore is a read-through Redis cache in front of a template store.
// Redis failures degrade to reading the underlying store.
type CachedStore struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(store Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = constants.DefaultTemplateCacheTTL
	}
	return &CachedStore{
		store:  store,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(id string) string {
	return constants.CacheKeyPrefixTemplate + id
}

func (s *CachedStore) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	raw, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var tpl models.EmailTemplate
		if jsonErr := json.Unmarshal(raw, &tpl); jsonErr == nil {
			metrics.TemplateCacheRequests.WithLabelValues("hit").Inc()
			return &tpl, nil
		}
		s.logger.WarnwCtx(ctx, "Dropping undecodable cached template", "template_id", id)
	case errors.Is(err, redis.Nil):
	default:
		s.logger.WarnwCtx(ctx, "Template cache read failed", "template_id", id, "error", err)
	}
	metrics.TemplateCacheRequests.WithLabelValues("miss").Inc()

	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(tpl); err == nil {
		if err := s.client.Set(ctx, cacheKey(id), payload, s.ttl).Err(); err != nil {
			s.logger.WarnwCtx(ctx, "Template cache write failed", "template_id", id, "error", err)
		}
	}

	return tpl, nil
}

func (s *CachedStore) Invalidate(ctx context.Context, id string) error {
	return s.client.Del(ctx, cacheKey(id)).Err()
}
