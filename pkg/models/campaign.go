package models

import "time"

type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

type Schedule struct {
	StartDate time.Time  `json:"start_date"`
	Frequency Frequency  `json:"frequency"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// CampaignAutomation sends a template to every campaign member on a
// schedule. LastRunAt is owned by the scheduler; nothing else writes it.
type CampaignAutomation struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaign_id"`
	TemplateID string     `json:"template_id"`
	Schedule   Schedule   `json:"schedule"`
	Active     bool       `json:"is_active"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type EmailTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"content"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
