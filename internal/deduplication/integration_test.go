//go:build integration

package deduplication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/internal/testinfra"
	"leadflow/pkg/models"
)

func TestIntegration_ClaimAgainstRedis(t *testing.T) {
	client := testinfra.Redis(t)
	repo := NewCircuitBreakerRepository(NewRepository(client), config.CircuitBreakerConfig{Enabled: true})
	svc := NewService(repo, config.DeduplicationConfig{TTLSeconds: 60}, logger.NopLogger())
	ctx := context.Background()

	msg := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "crm", map[string]interface{}{"lead_id": "l1"})

	fresh, err := svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.False(t, fresh)

	ttl, err := client.TTL(ctx, "ingest:"+ClaimKey(msg)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 0.0)

	svc.Release(ctx, msg)
	fresh, err = svc.Claim(ctx, msg)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "closed", repo.State())
}
