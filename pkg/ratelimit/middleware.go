package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
)

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromSettings fills unset values from DefaultConfig. Intervals in settings
// are seconds.
func FromSettings(s config.RateLimitConfig) Config {
	cfg := DefaultConfig()
	if s.RPS > 0 {
		cfg.RPS = s.RPS
	}
	if s.Burst > 0 {
		cfg.Burst = s.Burst
	}
	if s.CleanupInterval > 0 {
		cfg.CleanupInterval = time.Duration(s.CleanupInterval) * time.Second
	}
	if s.MaxAge > 0 {
		cfg.MaxAge = time.Duration(s.MaxAge) * time.Second
	}
	return cfg
}

// NewStore picks the store named in settings. The redis store needs a
// client; without one it falls back to memory.
func NewStore(s config.RateLimitConfig, client *redis.Client) Store {
	cfg := FromSettings(s)
	if s.Store == constants.RateLimitStoreRedis && client != nil {
		return NewRedisStore(client, cfg)
	}
	return NewMemoryStore(cfg)
}

// Middleware limits requests per client IP. Store errors let the request
// through.
func Middleware(store Store, cfg Config, log logger.Logger) gin.HandlerFunc {
	limit := strconv.Itoa(int(cfg.RPS))

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		decision, err := store.Allow(c.Request.Context(), clientIP)
		if err != nil {
			log.WarnwCtx(c.Request.Context(), "Rate limit store unavailable, allowing request",
				"error", err,
				"client_ip", clientIP,
			)
			metrics.RateLimitRequestsTotal.WithLabelValues("error").Inc()
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limit)
		if !decision.Allowed {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
