package management

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadflow/internal/automation"
	"leadflow/internal/broker"
	"leadflow/internal/constants"
	"leadflow/pkg/logging"
	"leadflow/pkg/models"
)

type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	event := models.ConfigUpdateEvent{
		EventType: models.EventTypeAutomationRuleUpdated,
		RuleID:    ruleID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		ChangedBy: changedBy,
	}
	payload, err := toPayload(event)
	if err != nil {
		return fmt.Errorf("failed to encode config event: %w", err)
	}
	return p.publish(ctx, models.EnvelopeTypeConfigUpdate, payload)
}

func (p *ConfigEventProducer) publish(ctx context.Context, envelopeType string, payload map[string]interface{}) error {
	if p == nil || p.producer == nil || p.topic == "" {
		return nil
	}
	envelope := models.NewEnvelope(envelopeType, constants.ServiceName, payload)
	envelope.Metadata.TraceID = logging.GetTraceID(ctx)
	return p.producer.Publish(ctx, p.topic, envelope)
}

// KafkaTeamNotifier publishes notify_team actions to the notifications
// topic, where chat or paging integrations pick them up.
type KafkaTeamNotifier struct {
	events *ConfigEventProducer
}

func NewKafkaTeamNotifier(producer broker.Producer, topic string) *KafkaTeamNotifier {
	return &KafkaTeamNotifier{events: NewConfigEventProducer(producer, topic)}
}

func (n *KafkaTeamNotifier) NotifyTeam(ctx context.Context, notification automation.TeamNotification) error {
	payload, err := toPayload(notification)
	if err != nil {
		return fmt.Errorf("failed to encode team notification: %w", err)
	}
	return n.events.publish(ctx, models.EnvelopeTypeTeamNotification, payload)
}

func toPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
