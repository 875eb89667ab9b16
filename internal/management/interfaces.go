package management

import (
	"context"

	"leadflow/internal/automation"
	"leadflow/pkg/models"
)

type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*automation.Rule, error)
	ListRules(ctx context.Context) ([]automation.Rule, error)
	GetRule(ctx context.Context, id string) (*automation.Rule, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*automation.Rule, error)
	DeleteRule(ctx context.Context, id string) error

	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*models.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]models.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, id string, req UpdateTemplateRequest) (*models.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error

	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, limit, offset int) ([]models.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	UpdateCampaign(ctx context.Context, id string, req UpdateCampaignRequest) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	AddCampaignLead(ctx context.Context, campaignID, leadID string) (bool, error)
	RemoveCampaignLead(ctx context.Context, campaignID, leadID string) error
	ListCampaignLeads(ctx context.Context, campaignID string) ([]models.Lead, error)

	CreateAutomation(ctx context.Context, campaignID string, req CreateAutomationRequest) (*models.CampaignAutomation, error)
	ListAutomations(ctx context.Context, campaignID string) ([]models.CampaignAutomation, error)
	SetAutomationStatus(ctx context.Context, campaignID, id string, active bool) (*models.CampaignAutomation, error)
	DeleteAutomation(ctx context.Context, campaignID, id string) error

	ListRuns(ctx context.Context, filter RunFilter) ([]models.AutomationRun, error)
}
