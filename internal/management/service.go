package management

import (
	"context"
	"time"

	"leadflow/internal/automation"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

// RuleReloader refreshes the in-process rule snapshot after a change.
type RuleReloader interface {
	ReloadRules(ctx context.Context) error
}

// TemplateInvalidator drops a cached template after it changes.
type TemplateInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

type service struct {
	repo                Repository
	logger              logger.Logger
	rules               RuleReloader
	templateCache       TemplateInvalidator
	configEventProducer *ConfigEventProducer
}

type ServiceOption func(*service)

func WithRuleCache(rules RuleReloader) ServiceOption {
	return func(s *service) {
		s.rules = rules
	}
}

func WithTemplateCache(cache TemplateInvalidator) ServiceOption {
	return func(s *service) {
		s.templateCache = cache
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*automation.Rule, error) {
	rule := &automation.Rule{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.TriggerType,
		Conditions:  req.Conditions,
		Active:      boolOrDefault(req.IsActive, true),
	}
	if err := buildRule(rule, req.Actions); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.rulesChanged(ctx, models.ActionCreate, rule.ID)
	return rule, nil
}

func (s *service) ListRules(ctx context.Context) ([]automation.Rule, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetRule(ctx context.Context, id string) (*automation.Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*automation.Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	action := models.ActionUpdate
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.TriggerType != nil {
		rule.Trigger = *req.TriggerType
	}
	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}
	if req.IsActive != nil {
		if *req.IsActive != rule.Active && req.onlyToggles() {
			action = models.ActionToggle
		}
		rule.Active = *req.IsActive
	}

	specs := rule.Actions.Specs()
	if req.Actions != nil {
		specs = *req.Actions
	}
	if err := buildRule(rule, specs); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.rulesChanged(ctx, action, rule.ID)
	return rule, nil
}

func (req UpdateRuleRequest) onlyToggles() bool {
	return req.Name == nil && req.Description == nil && req.TriggerType == nil &&
		req.Conditions == nil && req.Actions == nil
}

func (s *service) DeleteRule(ctx context.Context, id string) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.rulesChanged(ctx, models.ActionDelete, id)
	return nil
}

// rulesChanged refreshes the local rule cache and tells other instances to
// do the same. Neither failure undoes the committed change.
func (s *service) rulesChanged(ctx context.Context, action, ruleID string) {
	if s.rules != nil {
		if err := s.rules.ReloadRules(ctx); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to reload rule cache after change",
				"rule_id", ruleID,
				"action", action,
				"error", err,
			)
		}
	}
	if s.configEventProducer != nil {
		if err := s.configEventProducer.PublishRuleEvent(ctx, action, ruleID, getChangedBy(ctx)); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to publish rule change event",
				"rule_id", ruleID,
				"action", action,
				"error", err,
			)
		}
	}
}

func (s *service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*models.EmailTemplate, error) {
	if err := ValidateTemplate(req.Name, req.Subject, req.Content); err != nil {
		return nil, validationError(err)
	}
	tpl := &models.EmailTemplate{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Content,
		Variables: req.Variables,
	}
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return tpl, nil
}

func (s *service) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return templates, nil
}

func (s *service) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return tpl, nil
}

func (s *service) UpdateTemplate(ctx context.Context, id string, req UpdateTemplateRequest) (*models.EmailTemplate, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Subject != nil {
		tpl.Subject = *req.Subject
	}
	if req.Content != nil {
		tpl.Body = *req.Content
	}
	if req.Variables != nil {
		tpl.Variables = *req.Variables
	}
	if err := ValidateTemplate(tpl.Name, tpl.Subject, tpl.Body); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.invalidateTemplate(ctx, id)
	return tpl, nil
}

func (s *service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.invalidateTemplate(ctx, id)
	return nil
}

func (s *service) invalidateTemplate(ctx context.Context, id string) {
	if s.templateCache == nil {
		return
	}
	if err := s.templateCache.Invalidate(ctx, id); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to invalidate cached template",
			"template_id", id,
			"error", err,
		)
	}
}

func (s *service) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error) {
	c := &models.Campaign{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
	}
	if c.Type == "" {
		c.Type = CampaignTypeEmail
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if err := ValidateCampaign(c.Name, c.Status); err != nil {
		return nil, validationError(err)
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return c, nil
}

func (s *service) ListCampaigns(ctx context.Context, limit, offset int) ([]models.Campaign, error) {
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	campaigns, err := s.repo.ListCampaigns(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return campaigns, nil
}

func (s *service) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return c, nil
}

func (s *service) UpdateCampaign(ctx context.Context, id string, req UpdateCampaignRequest) (*models.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Type != nil {
		c.Type = *req.Type
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if err := ValidateCampaign(c.Name, c.Status); err != nil {
		return nil, validationError(err)
	}
	if err := s.repo.UpdateCampaign(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return c, nil
}

func (s *service) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

func (s *service) AddCampaignLead(ctx context.Context, campaignID, leadID string) (bool, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	added, err := s.repo.AddMember(ctx, campaignID, leadID)
	if err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return added, nil
}

func (s *service) RemoveCampaignLead(ctx context.Context, campaignID, leadID string) error {
	if err := s.repo.RemoveMember(ctx, campaignID, leadID); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

func (s *service) ListCampaignLeads(ctx context.Context, campaignID string) ([]models.Lead, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	leads, err := s.repo.ListMembers(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return leads, nil
}

func (s *service) CreateAutomation(ctx context.Context, campaignID string, req CreateAutomationRequest) (*models.CampaignAutomation, error) {
	if err := ValidateSchedule(req.Schedule); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if _, err := s.repo.GetTemplate(ctx, req.TemplateID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	a := &models.CampaignAutomation{
		CampaignID: campaignID,
		TemplateID: req.TemplateID,
		Schedule: models.Schedule{
			StartDate: req.Schedule.StartDate.UTC(),
			Frequency: req.Schedule.Frequency,
			EndDate:   utcPtr(req.Schedule.EndDate),
		},
		Active: boolOrDefault(req.IsActive, true),
	}
	if err := s.repo.CreateAutomation(ctx, a); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return a, nil
}

func (s *service) ListAutomations(ctx context.Context, campaignID string) ([]models.CampaignAutomation, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	automations, err := s.repo.ListAutomations(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return automations, nil
}

func (s *service) SetAutomationStatus(ctx context.Context, campaignID, id string, active bool) (*models.CampaignAutomation, error) {
	a, err := s.automationOf(ctx, campaignID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAutomationActive(ctx, id, active); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	a.Active = active
	return a, nil
}

func (s *service) DeleteAutomation(ctx context.Context, campaignID, id string) error {
	if _, err := s.automationOf(ctx, campaignID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteAutomation(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

// automationOf loads an automation and checks it belongs to the campaign in
// the request path.
func (s *service) automationOf(ctx context.Context, campaignID, id string) (*models.CampaignAutomation, error) {
	a, err := s.repo.GetAutomation(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if a.CampaignID != campaignID {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return a, nil
}

func (s *service) ListRuns(ctx context.Context, filter RunFilter) ([]models.AutomationRun, error) {
	runs, err := s.repo.ListRuns(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return runs, nil
}

func validationError(err error) error {
	return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type changedByKey struct{}

// WithChangedBy records who is making a management change.
func WithChangedBy(ctx context.Context, who string) context.Context {
	return context.WithValue(ctx, changedByKey{}, who)
}

func getChangedBy(ctx context.Context) string {
	if id, ok := ctx.Value(changedByKey{}).(string); ok && id != "" {
		return id
	}
	return "system"
}
