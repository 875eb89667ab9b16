package automation

import (
	"context"

	"leadflow/internal/logger"
	"leadflow/internal/templating"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
)

type Executor struct {
	templates TemplateStore
	leads     LeadStore
	campaigns CampaignStore
	email     EmailGateway
	notifier  TeamNotifier
	logger    logger.Logger
}

type ExecutorOption func(*Executor)

// WithTeamNotifier publishes notify_team actions. Without it they are no-ops.
func WithTeamNotifier(n TeamNotifier) ExecutorOption {
	return func(e *Executor) {
		e.notifier = n
	}
}

func NewExecutor(templates TemplateStore, leads LeadStore, campaigns CampaignStore, email EmailGateway, log logger.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		templates: templates,
		leads:     leads,
		campaigns: campaigns,
		email:     email,
		logger:    log.Named("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one action for lead and reports whether it succeeded. It
// never panics; a panic inside an action counts as a failure.
func (e *Executor) Execute(ctx context.Context, action Action, lead *models.Lead, facts map[string]interface{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			e.logger.ErrorwCtx(ctx, "Recovered panic while executing action",
				"action", actionName(action),
				"error", err,
			)
			ok = false
		}
		metrics.IncActionExecution(actionName(action), ok)
	}()

	if lead == nil {
		e.logger.ErrorwCtx(ctx, "Action executed without a lead", "action", actionName(action))
		return false
	}

	switch a := action.(type) {
	case SendEmail:
		return e.sendEmail(ctx, a, lead, facts)
	case UpdateLead:
		return e.updateLead(ctx, a, lead)
	case AddToCampaign:
		return e.addToCampaign(ctx, a, lead)
	case NotifyTeam:
		return e.notifyTeam(ctx, a, lead, facts)
	default:
		e.logger.ErrorwCtx(ctx, "Unknown action type", "action", actionName(action))
		return false
	}
}

func (e *Executor) sendEmail(ctx context.Context, a SendEmail, lead *models.Lead, facts map[string]interface{}) bool {
	if a.TemplateID == "" {
		e.logger.ErrorwCtx(ctx, "No template_id provided for send_email action")
		return false
	}

	tpl, err := e.templates.GetTemplate(ctx, a.TemplateID)
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Email template not found",
			"template_id", a.TemplateID,
			"error", err,
		)
		return false
	}

	subject, body := templating.Render(tpl, facts)
	if !e.email.Send(ctx, lead.Email, subject, body) {
		e.logger.WarnwCtx(ctx, "Email delivery failed",
			"template_id", a.TemplateID,
			"lead_id", lead.ID,
		)
		return false
	}
	return true
}

func (e *Executor) updateLead(ctx context.Context, a UpdateLead, lead *models.Lead) bool {
	if a.Fields == nil {
		e.logger.ErrorwCtx(ctx, "No fields provided for update_lead action")
		return false
	}

	updated := lead.Clone()
	for name, value := range a.Fields {
		if !updated.SetField(name, value) {
			e.logger.DebugwCtx(ctx, "Skipping unknown lead field",
				"field", name,
			)
		}
	}

	if err := e.leads.UpdateLead(ctx, updated); err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to persist lead update",
			"lead_id", lead.ID,
			"error", err,
		)
		return false
	}

	*lead = *updated
	return true
}

func (e *Executor) addToCampaign(ctx context.Context, a AddToCampaign, lead *models.Lead) bool {
	if a.CampaignID == "" {
		e.logger.ErrorwCtx(ctx, "No campaign_id provided for add_to_campaign action")
		return false
	}

	if _, err := e.campaigns.GetCampaign(ctx, a.CampaignID); err != nil {
		e.logger.ErrorwCtx(ctx, "Campaign not found",
			"campaign_id", a.CampaignID,
			"error", err,
		)
		return false
	}

	added, err := e.campaigns.AddMember(ctx, a.CampaignID, lead.ID)
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to add lead to campaign",
			"campaign_id", a.CampaignID,
			"lead_id", lead.ID,
			"error", err,
		)
		return false
	}
	if !added {
		e.logger.DebugwCtx(ctx, "Lead already enrolled in campaign",
			"campaign_id", a.CampaignID,
			"lead_id", lead.ID,
		)
	}
	return true
}

func (e *Executor) notifyTeam(ctx context.Context, a NotifyTeam, lead *models.Lead, facts map[string]interface{}) bool {
	if e.notifier == nil {
		return true
	}

	n := TeamNotification{
		Channel: a.Channel,
		Message: a.Message,
		LeadID:  lead.ID,
		Facts:   facts,
	}
	if err := e.notifier.NotifyTeam(ctx, n); err != nil {
		e.logger.WarnwCtx(ctx, "Team notification not delivered",
			"lead_id", lead.ID,
			"channel", a.Channel,
			"error", err,
		)
	}
	return true
}

func actionName(a Action) string {
	if a == nil {
		return "nil"
	}
	return string(a.Type())
}
