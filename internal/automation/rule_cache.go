package automation

import (
	"context"
	"sync"
	"time"

	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
)

type RuleStore interface {
	ListActiveRules(ctx context.Context) ([]Rule, error)
}

// RuleCache serves active rules from an in-memory snapshot that is
// refreshed periodically and on rule change notifications.
type RuleCache struct {
	store    RuleStore
	interval time.Duration
	logger   logger.Logger

	mu     sync.RWMutex
	byKind map[TriggerKind][]Rule
	loaded bool
}

func NewRuleCache(store RuleStore, interval time.Duration, log logger.Logger) *RuleCache {
	return &RuleCache{
		store:    store,
		interval: interval,
		logger:   log,
		byKind:   make(map[TriggerKind][]Rule),
	}
}

// RulesFor returns the cached rules for kind. Before the first successful
// load it reads through to the store.
func (c *RuleCache) RulesFor(ctx context.Context, kind TriggerKind) ([]Rule, error) {
	c.mu.RLock()
	if c.loaded {
		rules := make([]Rule, len(c.byKind[kind]))
		copy(rules, c.byKind[kind])
		c.mu.RUnlock()
		return rules, nil
	}
	c.mu.RUnlock()

	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c.RulesFor(ctx, kind)
}

func (c *RuleCache) Reload(ctx context.Context) error {
	rules, err := c.store.ListActiveRules(ctx)
	if err != nil {
		return err
	}

	byKind := make(map[TriggerKind][]Rule, len(TriggerKinds))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		byKind[rule.Trigger] = append(byKind[rule.Trigger], rule)
	}

	c.mu.Lock()
	c.byKind = byKind
	c.loaded = true
	c.mu.Unlock()

	metrics.SetActiveRules(len(rules))
	c.logger.InfowCtx(ctx, "Successfully reloaded automation rules",
		"rules_count", len(rules),
	)
	return nil
}

// ReloadRules satisfies the config update handler.
func (c *RuleCache) ReloadRules(ctx context.Context) error {
	return c.Reload(ctx)
}

func (c *RuleCache) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if err := c.Reload(ctx); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to reload automation rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := c.Reload(ctx); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to reload automation rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
