package management

import (
	"fmt"
	"strings"

	"leadflow/internal/automation"
	"leadflow/pkg/models"
)

// buildRule parses action specs into typed actions and validates the
// assembled rule. Rules that fail here never reach storage.
func buildRule(rule *automation.Rule, specs []automation.ActionSpec) error {
	actions, err := automation.ParseActions(specs)
	if err != nil {
		return err
	}
	rule.Actions = actions
	if rule.Conditions == nil {
		rule.Conditions = []automation.Condition{}
	}
	return rule.Validate()
}

func ValidateTemplate(name, subject, content string) error {
	if strings.TrimSpace(name) == "" {
		return &models.ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(subject) == "" {
		return &models.ValidationError{Field: "subject", Message: "subject is required"}
	}
	if content == "" {
		return &models.ValidationError{Field: "content", Message: "content is required"}
	}
	return nil
}

func ValidateCampaign(name, status string) error {
	if strings.TrimSpace(name) == "" {
		return &models.ValidationError{Field: "name", Message: "name is required"}
	}
	if status != "" && !validCampaignStatuses[status] {
		return &models.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown campaign status %q", status),
		}
	}
	return nil
}

func ValidateSchedule(s ScheduleRequest) error {
	if s.StartDate.IsZero() {
		return &models.ValidationError{Field: "schedule.start_date", Message: "start_date is required"}
	}
	if !s.Frequency.Valid() {
		return &models.ValidationError{
			Field:   "schedule.frequency",
			Message: fmt.Sprintf("frequency must be one of once, daily, weekly; got %q", s.Frequency),
		}
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return &models.ValidationError{Field: "schedule.end_date", Message: "end_date must not precede start_date"}
	}
	return nil
}
