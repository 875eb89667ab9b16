package deduplication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/models"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRepository(client), mr
}

func TestClaim_SecondDeliveryIsDuplicate(t *testing.T) {
	repo, mr := newRedisRepo(t)
	svc := NewService(repo, config.DeduplicationConfig{TTLSeconds: 60}, logger.NopLogger())
	ctx := context.Background()

	msg := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "web", map[string]interface{}{"lead_id": "l1"})

	fresh, err := svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.False(t, fresh)

	key := constants.CacheKeyPrefixIngest + ClaimKey(msg)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 60*time.Second, mr.TTL(key))
}

func TestClaim_ExpiresAfterTTL(t *testing.T) {
	repo, mr := newRedisRepo(t)
	svc := NewService(repo, config.DeduplicationConfig{TTLSeconds: 10}, logger.NopLogger())
	ctx := context.Background()
	msg := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "web", nil)

	_, err := svc.Claim(ctx, msg)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	fresh, err := svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestRelease_AllowsReprocessing(t *testing.T) {
	repo, _ := newRedisRepo(t)
	svc := NewService(repo, config.DeduplicationConfig{}, logger.NopLogger())
	ctx := context.Background()
	msg := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "web", nil)

	_, err := svc.Claim(ctx, msg)
	require.NoError(t, err)
	svc.Release(ctx, msg)

	fresh, err := svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestClaimKey_DependsOnSourceAndID(t *testing.T) {
	a := models.MessageEnvelope{ID: "1", Source: "web"}
	b := models.MessageEnvelope{ID: "1", Source: "crm"}
	c := models.MessageEnvelope{ID: "1", Source: "web", Payload: map[string]interface{}{"x": 1}}

	assert.NotEqual(t, ClaimKey(a), ClaimKey(b))
	assert.Equal(t, ClaimKey(a), ClaimKey(c))
	assert.Len(t, ClaimKey(a), 64)
}

type failingRepo struct{}

func (failingRepo) SetNX(context.Context, string, interface{}, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingRepo) Del(context.Context, string) error { return errors.New("connection refused") }

func TestClaim_RedisErrorPolicy(t *testing.T) {
	msg := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "web", nil)

	tests := []struct {
		name      string
		policy    string
		wantFresh bool
		wantErr   bool
	}{
		{name: "allow", policy: OnRedisErrorAllow, wantFresh: true},
		{name: "default is allow", policy: "", wantFresh: true},
		{name: "reject", policy: OnRedisErrorReject, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(failingRepo{}, config.DeduplicationConfig{OnRedisError: tt.policy}, logger.NopLogger())
			fresh, err := svc.Claim(context.Background(), msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFresh, fresh)
		})
	}
}

func TestCircuitBreakerRepository_OpensAfterFailures(t *testing.T) {
	repo := NewCircuitBreakerRepository(failingRepo{}, config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	})

	for i := 0; i < 3; i++ {
		_, _ = repo.SetNX(context.Background(), "k", 1, time.Second)
	}
	assert.Equal(t, "open", repo.State())
}

func TestCircuitBreakerRepository_Disabled(t *testing.T) {
	inner, _ := newRedisRepo(t)
	repo := NewCircuitBreakerRepository(inner, config.CircuitBreakerConfig{})

	ok, err := repo.SetNX(context.Background(), "k", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "disabled", repo.State())
}
