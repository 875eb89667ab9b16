package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/logger"
)

func TestRuleCache_GroupsByTrigger(t *testing.T) {
	store := &fakeRuleStore{rules: []Rule{
		{ID: "a", Trigger: TriggerLeadCreated, Active: true},
		{ID: "b", Trigger: TriggerScoreChanged, Active: true},
		{ID: "c", Trigger: TriggerLeadCreated, Active: true},
		{ID: "d", Trigger: TriggerLeadCreated, Active: false},
	}}
	cache := NewRuleCache(store, time.Minute, logger.NopLogger())
	ctx := context.Background()

	rules, err := cache.RulesFor(ctx, TriggerLeadCreated)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = cache.RulesFor(ctx, TriggerScoreChanged)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	rules, err = cache.RulesFor(ctx, TriggerEventOccurred)
	require.NoError(t, err)
	assert.Empty(t, rules)

	assert.Equal(t, 1, store.calls, "store is read once")
}

func TestRuleCache_ReloadReplacesSnapshot(t *testing.T) {
	store := &fakeRuleStore{rules: []Rule{{ID: "a", Trigger: TriggerLeadCreated, Active: true}}}
	cache := NewRuleCache(store, time.Minute, logger.NopLogger())
	ctx := context.Background()

	require.NoError(t, cache.Reload(ctx))
	store.rules = nil
	require.NoError(t, cache.ReloadRules(ctx))

	rules, err := cache.RulesFor(ctx, TriggerLeadCreated)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRuleCache_FailedReloadKeepsPreviousSnapshot(t *testing.T) {
	store := &fakeRuleStore{rules: []Rule{{ID: "a", Trigger: TriggerLeadCreated, Active: true}}}
	cache := NewRuleCache(store, time.Minute, logger.NopLogger())
	ctx := context.Background()

	require.NoError(t, cache.Reload(ctx))
	store.err = errStoreDown
	assert.Error(t, cache.Reload(ctx))

	rules, err := cache.RulesFor(ctx, TriggerLeadCreated)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestRuleCache_ErrorBeforeFirstLoad(t *testing.T) {
	cache := NewRuleCache(&fakeRuleStore{err: errStoreDown}, time.Minute, logger.NopLogger())
	_, err := cache.RulesFor(context.Background(), TriggerLeadCreated)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRuleCache_StartReloaderStopsOnCancel(t *testing.T) {
	store := &fakeRuleStore{}
	cache := NewRuleCache(store, 10*time.Millisecond, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cache.StartReloader(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reloader did not stop")
	}
}
