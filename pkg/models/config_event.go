package models

import "time"

type ConfigUpdateEvent struct {
	EventType string    `json:"event_type" mapstructure:"event_type"`
	RuleID    string    `json:"rule_id,omitempty" mapstructure:"rule_id"`
	Action    string    `json:"action" mapstructure:"action"`
	Timestamp time.Time `json:"timestamp" mapstructure:"-"`
	ChangedBy string    `json:"changed_by,omitempty" mapstructure:"changed_by"`
}

const (
	EventTypeAutomationRuleUpdated = "automation_rule_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
)
