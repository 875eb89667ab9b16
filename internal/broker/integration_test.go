//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/internal/testinfra"
	"leadflow/pkg/models"
)

func TestIntegration_PublishConsumeRoundTrip(t *testing.T) {
	brokers := testinfra.Kafka(t)
	cfg := config.KafkaConfig{
		Brokers: brokers,
		GroupID: "leadflow-it",
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}
	log := logger.NopLogger()

	producer := NewKafkaProducer(cfg, log)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sent := models.NewEnvelope(models.EnvelopeTypeLeadEvent, "crm", map[string]interface{}{
		"kind":    "lead_created",
		"lead_id": "lead-1",
	})
	require.NoError(t, producer.Publish(ctx, "lead_events_it", sent))

	received := make(chan models.MessageEnvelope, 1)
	consumer := NewKafkaConsumer(cfg, log)
	go func() {
		_ = consumer.Consume(ctx, "lead_events_it", func(_ context.Context, msg models.MessageEnvelope) error {
			select {
			case received <- msg:
			default:
			}
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, sent.ID, msg.ID)
		assert.Equal(t, models.EnvelopeTypeLeadEvent, msg.Type)
		assert.Equal(t, "lead-1", msg.Payload["lead_id"])
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	cancel()
	assert.NoError(t, consumer.Close())
}
