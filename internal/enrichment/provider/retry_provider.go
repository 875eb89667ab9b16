package provider

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/logger"
	"leadflow/pkg/retry"
)

// RetryProvider retries failed lookups a fixed number of times with a
// constant delay. The last error is returned once attempts run out.
type RetryProvider struct {
	next       DataProvider
	maxRetries int
	delay      time.Duration
	logger     logger.Logger
}

func NewRetryProvider(next DataProvider, maxRetries int, delay time.Duration, log logger.Logger) *RetryProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryProvider{
		next:       next,
		maxRetries: maxRetries,
		delay:      delay,
		logger:     log,
	}
}

func (p *RetryProvider) Fetch(ctx context.Context, domain string) (map[string]interface{}, error) {
	policy := retry.Policy{
		MaxAttempts:     p.maxRetries + 1,
		InitialInterval: p.delay,
		Multiplier:      1,
	}

	var result map[string]interface{}
	err := retry.RetryWithCallback(ctx, policy, func() error {
		data, err := p.next.Fetch(ctx, domain)
		if errors.Is(err, ErrNoMatch) {
			return retry.NewFatalError(err)
		}
		if err != nil {
			return err
		}
		result = data
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		p.logger.WarnwCtx(ctx, "Retrying enrichment lookup",
			"domain", domain,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
