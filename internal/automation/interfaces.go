package automation

import (
	"context"

	"leadflow/pkg/models"
)

type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
}

type LeadStore interface {
	UpdateLead(ctx context.Context, lead *models.Lead) error
}

type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	// AddMember enrolls a lead and reports whether a new membership was created.
	AddMember(ctx context.Context, campaignID, leadID string) (bool, error)
}

// EmailGateway delivers one message. It reports failure instead of returning errors.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string) bool
}

type TeamNotifier interface {
	NotifyTeam(ctx context.Context, notification TeamNotification) error
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.AutomationRun) error
}

type TeamNotification struct {
	Channel string                 `json:"channel,omitempty"`
	Message string                 `json:"message,omitempty"`
	LeadID  string                 `json:"lead_id"`
	Facts   map[string]interface{} `json:"facts,omitempty"`
}
