package leads

import (
	"leadflow/internal/automation"
	"leadflow/pkg/models"
)

type CreateLeadRequest struct {
	Email     string                 `json:"email" binding:"required,email"`
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Phone     string                 `json:"phone"`
	Company   string                 `json:"company"`
	JobTitle  string                 `json:"job_title"`
	Source    string                 `json:"source"`
	LeadScore float64                `json:"lead_score"`
	Data      map[string]interface{} `json:"data"`
}

// UpdateLeadRequest carries a partial update. Nil fields are left unchanged.
type UpdateLeadRequest struct {
	Email     *string                `json:"email,omitempty" binding:"omitempty,email"`
	FirstName *string                `json:"first_name,omitempty"`
	LastName  *string                `json:"last_name,omitempty"`
	Phone     *string                `json:"phone,omitempty"`
	Company   *string                `json:"company,omitempty"`
	JobTitle  *string                `json:"job_title,omitempty"`
	Source    *string                `json:"source,omitempty"`
	LeadScore *float64               `json:"lead_score,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type TrackEventRequest struct {
	Source     string                 `json:"source"`
	Properties map[string]interface{} `json:"properties"`
}

// LeadResult is a lead together with what its automation dispatch did.
type LeadResult struct {
	Lead       *models.Lead         `json:"lead"`
	Automation []automation.Summary `json:"automation"`
}

type EventResult struct {
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	Event      *models.LeadEvent    `json:"event"`
	Automation []automation.Summary `json:"automation"`
}
