package templating

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type countingStore struct {
	templates map[string]*models.EmailTemplate
	calls     int
}

func (s *countingStore) GetTemplate(_ context.Context, id string) (*models.EmailTemplate, error) {
	s.calls++
	tpl, ok := s.templates[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return tpl, nil
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachedStore_ReadThrough(t *testing.T) {
	mr, client := setupCache(t)
	store := &countingStore{templates: map[string]*models.EmailTemplate{
		"t1": {ID: "t1", Subject: "Hi {first_name}", Variables: []string{"first_name"}},
	}}
	cached := NewCachedStore(store, client, time.Minute, logger.NopLogger())
	ctx := context.Background()

	tpl, err := cached.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Hi {first_name}", tpl.Subject)
	assert.True(t, mr.Exists("template:t1"))

	tpl, err = cached.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name"}, tpl.Variables)
	assert.Equal(t, 1, store.calls)

	mr.FastForward(2 * time.Minute)
	_, err = cached.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	mr, client := setupCache(t)
	cached := NewCachedStore(&countingStore{}, client, time.Minute, logger.NopLogger())

	_, err := cached.GetTemplate(context.Background(), "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.False(t, mr.Exists("template:missing"))
}

func TestCachedStore_Invalidate(t *testing.T) {
	mr, client := setupCache(t)
	store := &countingStore{templates: map[string]*models.EmailTemplate{"t1": {ID: "t1"}}}
	cached := NewCachedStore(store, client, time.Minute, logger.NopLogger())
	ctx := context.Background()

	_, err := cached.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, cached.Invalidate(ctx, "t1"))
	assert.False(t, mr.Exists("template:t1"))
}

func TestCachedStore_RedisDownFallsBack(t *testing.T) {
	mr, client := setupCache(t)
	store := &countingStore{templates: map[string]*models.EmailTemplate{"t1": {ID: "t1"}}}
	cached := NewCachedStore(store, client, time.Minute, logger.NopLogger())
	mr.Close()

	tpl, err := cached.GetTemplate(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tpl.ID)
}
