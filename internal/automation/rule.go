package automation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type TriggerKind string

const (
	TriggerLeadCreated   TriggerKind = "lead_created"
	TriggerLeadUpdated   TriggerKind = "lead_updated"
	TriggerScoreChanged  TriggerKind = "score_changed"
	TriggerEventOccurred TriggerKind = "event_occurred"
)

var TriggerKinds = []TriggerKind{
	TriggerLeadCreated,
	TriggerLeadUpdated,
	TriggerScoreChanged,
	TriggerEventOccurred,
}

func (k TriggerKind) Valid() bool {
	for _, kind := range TriggerKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Rule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Trigger     TriggerKind `json:"trigger_type"`
	Conditions  []Condition `json:"conditions"`
	Actions     Actions     `json:"actions"`
	Active      bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Matches reports whether every condition holds for facts.
func (r Rule) Matches(facts map[string]interface{}) (bool, error) {
	return EvaluateAll(r.Conditions, facts)
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !r.Trigger.Valid() {
		return &ValidationError{
			Field:   "trigger_type",
			Message: fmt.Sprintf("unknown trigger type %q", r.Trigger),
		}
	}
	for i, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	for i, action := range r.Actions {
		if action == nil {
			return &ValidationError{Field: fmt.Sprintf("actions[%d]", i), Message: "action is required"}
		}
		if err := action.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// RuleSource yields the active rules registered for a trigger kind.
type RuleSource interface {
	RulesFor(ctx context.Context, kind TriggerKind) ([]Rule, error)
}
