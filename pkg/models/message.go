package models

import (
	"time"

	"github.com/google/uuid"
)

// Envelope types carried on the broker.
const (
	EnvelopeTypeLeadEvent        = "lead_event"
	EnvelopeTypeConfigUpdate     = "config_update"
	EnvelopeTypeTeamNotification = "team_notification"
)

type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID   string `json:"trace_id,omitempty"`
	DLQReason string `json:"dlq_reason,omitempty"`
	DLQTopic  string `json:"dlq_source_topic,omitempty"`
}

func NewEnvelope(envelopeType, source string, payload map[string]interface{}) MessageEnvelope {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return MessageEnvelope{
		ID:        uuid.New().String(),
		Type:      envelopeType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LeadEventPayload is the payload of a lead_event envelope. Kind is one of
// the automation trigger kinds.
type LeadEventPayload struct {
	Kind          string                 `json:"kind" mapstructure:"kind"`
	LeadID        string                 `json:"lead_id" mapstructure:"lead_id"`
	UpdatedFields []string               `json:"updated_fields,omitempty" mapstructure:"updated_fields"`
	OldScore      *float64               `json:"old_score,omitempty" mapstructure:"old_score"`
	EventType     string                 `json:"event_type,omitempty" mapstructure:"event_type"`
	EventData     map[string]interface{} `json:"event_data,omitempty" mapstructure:"event_data"`
}
