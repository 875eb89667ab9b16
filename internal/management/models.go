package management

import (
	"time"

	"leadflow/internal/automation"
	"leadflow/pkg/models"
)

type CreateRuleRequest struct {
	Name        string                  `json:"name" binding:"required"`
	Description string                  `json:"description"`
	TriggerType automation.TriggerKind  `json:"trigger_type" binding:"required"`
	Conditions  []automation.Condition  `json:"conditions"`
	Actions     []automation.ActionSpec `json:"actions"`
	IsActive    *bool                   `json:"is_active"`
}

type UpdateRuleRequest struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	TriggerType *automation.TriggerKind  `json:"trigger_type"`
	Conditions  *[]automation.Condition  `json:"conditions"`
	Actions     *[]automation.ActionSpec `json:"actions"`
	IsActive    *bool                    `json:"is_active"`
}

type CreateTemplateRequest struct {
	Name      string   `json:"name" binding:"required"`
	Subject   string   `json:"subject" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	Variables []string `json:"variables"`
}

type UpdateTemplateRequest struct {
	Name      *string   `json:"name"`
	Subject   *string   `json:"subject"`
	Content   *string   `json:"content"`
	Variables *[]string `json:"variables"`
}

type CreateCampaignRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Status      string `json:"status"`
}

type UpdateCampaignRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
}

type ScheduleRequest struct {
	StartDate time.Time        `json:"start_date" binding:"required"`
	Frequency models.Frequency `json:"frequency" binding:"required"`
	EndDate   *time.Time       `json:"end_date"`
}

type CreateAutomationRequest struct {
	TemplateID string          `json:"template_id" binding:"required"`
	Schedule   ScheduleRequest `json:"schedule" binding:"required"`
	IsActive   *bool           `json:"is_active"`
}

type AutomationStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// RunFilter narrows the automation run listing. Empty fields match anything.
type RunFilter struct {
	Kind         string
	RuleID       string
	AutomationID string
	LeadID       string
	Limit        int
}

const (
	CampaignTypeEmail   = "email"
	CampaignStatusDraft = "draft"
)

var validCampaignStatuses = map[string]bool{
	"draft":     true,
	"active":    true,
	"paused":    true,
	"completed": true,
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
