package models

import "time"

// LeadEvent is an entry of the lead activity log.
type LeadEvent struct {
	ID         string                 `json:"id" bson:"_id"`
	LeadID     string                 `json:"lead_id" bson:"lead_id"`
	EventType  string                 `json:"event_type" bson:"event_type"`
	Source     string                 `json:"source,omitempty" bson:"source,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty" bson:"properties,omitempty"`
	Timestamp  time.Time              `json:"timestamp" bson:"timestamp"`
}

const (
	RunKindRule     = "rule"
	RunKindCampaign = "campaign"

	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusError   = "error"
)

// AutomationRun is the audit record of one rule firing or one campaign
// automation run.
type AutomationRun struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	RuleID       string    `json:"rule_id,omitempty"`
	AutomationID string    `json:"automation_id,omitempty"`
	LeadID       string    `json:"lead_id,omitempty"`
	Trigger      string    `json:"trigger,omitempty"`
	Status       string    `json:"status"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
