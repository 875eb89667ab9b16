package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"leadflow/internal/constants"
)

// Decision is the outcome of one Allow call. Remaining is a best-effort
// figure for the X-RateLimit-Remaining header.
type Decision struct {
	Allowed   bool
	Remaining int
}

type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in process memory.
type MemoryStore struct {
	cfg      Config
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	now      func() time.Time
}

func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:      cfg,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now

	if !entry.limiter.AllowN(now, 1) {
		return Decision{Allowed: false}, nil
	}
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// Cleanup drops limiters idle for longer than MaxAge and returns how many
// were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > s.cfg.MaxAge {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every CleanupInterval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RedisStore counts requests in fixed one-second windows shared by every
// instance. The window allows RPS plus Burst requests.
type RedisStore struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  int64(cfg.RPS) + int64(cfg.Burst),
		now:    time.Now,
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	windowKey := fmt.Sprintf("%s%s:%d", constants.CacheKeyPrefixRateLimit, key, s.now().Unix())

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := incr.Val()
	if count > s.limit {
		return Decision{Allowed: false}, nil
	}
	return Decision{Allowed: true, Remaining: int(s.limit - count)}, nil
}
