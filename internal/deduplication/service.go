package deduplication

import (
	"context"
	"fmt"
	"time"

	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
	"leadflow/pkg/tracing"
)

const (
	OnRedisErrorAllow  = "allow"
	OnRedisErrorReject = "reject"
)

// Service drops lead event envelopes that were already processed within
// the TTL. It is best effort: with Redis unavailable the configured policy
// decides, and a crash between claim and processing can lose an event.
type Service struct {
	repo   Repository
	ttl    time.Duration
	policy string
	logger logger.Logger
}

func NewService(repo Repository, cfg config.DeduplicationConfig, log logger.Logger) *Service {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = constants.DefaultIngestDedupTTL
	}
	policy := cfg.OnRedisError
	if policy == "" {
		policy = OnRedisErrorAllow
	}
	return &Service{
		repo:   repo,
		ttl:    ttl,
		policy: policy,
		logger: log,
	}
}

// Claim reports whether msg is seen for the first time and should be
// processed.
func (s *Service) Claim(ctx context.Context, msg models.MessageEnvelope) (bool, error) {
	ctx, span := tracing.GetTracer("deduplication").Start(ctx, "deduplication.claim")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := constants.CacheKeyPrefixIngest + ClaimKey(msg)
	fresh, err := s.repo.SetNX(ctx, key, time.Now().Unix(), s.ttl)
	if err != nil {
		return s.handleRedisError(ctx, err, msg.ID)
	}

	if !fresh {
		metrics.IngestMessagesTotal.WithLabelValues("duplicate").Inc()
		s.logger.InfowCtx(ctx, "Dropping duplicate lead event", "message_id", msg.ID)
	}
	return fresh, nil
}

// Release forgets a claim so a redelivery of msg is processed again. It is
// called when processing fails after a successful claim.
func (s *Service) Release(ctx context.Context, msg models.MessageEnvelope) {
	key := constants.CacheKeyPrefixIngest + ClaimKey(msg)
	if err := s.repo.Del(ctx, key); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to release ingest claim",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

func (s *Service) handleRedisError(ctx context.Context, err error, msgID string) (bool, error) {
	if s.policy == OnRedisErrorAllow {
		metrics.FallbackUsageTotal.WithLabelValues("deduplication", "allow_on_error", "redis_error").Inc()
		s.logger.WarnwCtx(ctx, "Redis error during dedup check, allowing message (fallback: allow)",
			"error", err,
			"message_id", msgID,
		)
		return true, nil
	}

	metrics.FallbackUsageTotal.WithLabelValues("deduplication", "reject_on_error", "redis_error").Inc()
	return false, fmt.Errorf("redis error during dedup check for message %s: %w", msgID, err)
}
