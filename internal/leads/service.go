package leads

import (
	"context"
	"reflect"
	"strings"
	"time"

	"leadflow/internal/automation"
	"leadflow/internal/events"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/logging"
	"leadflow/pkg/models"
)

// Triggers fans lead lifecycle changes out to the automation rules.
type Triggers interface {
	OnLeadCreated(ctx context.Context, lead *models.Lead) automation.Summary
	OnLeadUpdated(ctx context.Context, lead *models.Lead, updatedFields []string) automation.Summary
	OnScoreChanged(ctx context.Context, lead *models.Lead, oldScore float64) automation.Summary
	OnEvent(ctx context.Context, lead *models.Lead, eventType string, eventData map[string]interface{}) automation.Summary
}

// Enricher supplies extra lead data for a new lead's email address.
type Enricher interface {
	EnrichData(ctx context.Context, email string) (map[string]interface{}, error)
}

type Service interface {
	CreateLead(ctx context.Context, req CreateLeadRequest) (*LeadResult, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error)
	UpdateLead(ctx context.Context, id string, req UpdateLeadRequest) (*LeadResult, error)
	DeleteLead(ctx context.Context, id string) error
	TrackEvent(ctx context.Context, leadID, eventType string, req TrackEventRequest) (*EventResult, error)
	ListEvents(ctx context.Context, leadID, eventType string, limit int) ([]models.LeadEvent, error)
	Ingest(ctx context.Context, payload models.LeadEventPayload) (automation.Summary, error)
}

type service struct {
	repo     Repository
	events   events.Repository
	triggers Triggers
	enricher Enricher
	now      func() time.Time
	logger   logger.Logger
}

type ServiceOption func(*service)

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

// WithEnricher enriches leads before they are stored. Enrichment failures
// are logged and the lead is created without the extra data.
func WithEnricher(e Enricher) ServiceOption {
	return func(s *service) {
		s.enricher = e
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		s.now = now
	}
}

func NewService(repo Repository, eventLog events.Repository, triggers Triggers, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		events:   eventLog,
		triggers: triggers,
		now:      time.Now,
		logger:   logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLead stores the lead and then runs the lead_created rules. Rule
// failures are reported in the result, never as an error.
func (s *service) CreateLead(ctx context.Context, req CreateLeadRequest) (*LeadResult, error) {
	lead := &models.Lead{
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Company:   req.Company,
		JobTitle:  req.JobTitle,
		Source:    req.Source,
		LeadScore: req.LeadScore,
		Data:      req.Data,
	}
	if lead.Email == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "email is required")
	}
	s.enrich(ctx, lead)

	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	ctx = logging.WithLeadID(ctx, lead.ID)
	s.logger.InfowCtx(ctx, "Lead created", "source", lead.Source)

	summary := s.triggers.OnLeadCreated(ctx, lead)
	return &LeadResult{Lead: lead, Automation: []automation.Summary{summary}}, nil
}

func (s *service) enrich(ctx context.Context, lead *models.Lead) {
	if s.enricher == nil {
		return
	}
	extra, err := s.enricher.EnrichData(ctx, lead.Email)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Lead enrichment failed, creating lead without it", "email", lead.Email, "error", err)
		return
	}
	if len(extra) == 0 {
		return
	}
	if lead.Data == nil {
		lead.Data = make(map[string]interface{}, len(extra))
	}
	for k, v := range extra {
		if _, exists := lead.Data[k]; !exists {
			lead.Data[k] = v
		}
	}
}

func (s *service) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return lead, nil
}

func (s *service) ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	leads, err := s.repo.ListLeads(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return leads, nil
}

// UpdateLead applies the non-nil fields of req. Only fields whose value
// actually changed are reported to lead_updated rules, and score_changed
// rules run when lead_score is among them.
func (s *service) UpdateLead(ctx context.Context, id string, req UpdateLeadRequest) (*LeadResult, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	oldScore := lead.LeadScore

	updated := applyUpdate(lead, req)
	if err := s.repo.UpdateLead(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	ctx = logging.WithLeadID(ctx, lead.ID)
	s.logger.InfowCtx(ctx, "Lead updated", "updated_fields", updated)

	summaries := []automation.Summary{s.triggers.OnLeadUpdated(ctx, lead, updated)}
	if containsField(updated, "lead_score") {
		summaries = append(summaries, s.triggers.OnScoreChanged(ctx, lead, oldScore))
	}
	return &LeadResult{Lead: lead, Automation: summaries}, nil
}

func (s *service) DeleteLead(ctx context.Context, id string) error {
	if err := s.repo.DeleteLead(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.events != nil {
		if n, err := s.events.DeleteForLead(ctx, id); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to purge lead events", "lead_id", id, "error", err)
		} else if n > 0 {
			s.logger.DebugwCtx(ctx, "Purged lead events", "lead_id", id, "count", n)
		}
	}
	return nil
}

// TrackEvent appends an entry to the lead's activity log and then runs the
// event_occurred rules.
func (s *service) TrackEvent(ctx context.Context, leadID, eventType string, req TrackEventRequest) (*EventResult, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "event type is required")
	}

	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	ctx = logging.WithLeadID(ctx, lead.ID)

	event, err := s.trackEvent(ctx, lead, eventType, req.Source, req.Properties)
	if err != nil {
		return nil, err
	}

	summary := s.triggers.OnEvent(ctx, lead, eventType, req.Properties)
	return &EventResult{
		Status:     "success",
		Message:    "Event tracked successfully",
		Event:      event,
		Automation: []automation.Summary{summary},
	}, nil
}

func (s *service) trackEvent(ctx context.Context, lead *models.Lead, eventType, source string, props map[string]interface{}) (*models.LeadEvent, error) {
	event := &models.LeadEvent{
		LeadID:     lead.ID,
		EventType:  eventType,
		Source:     source,
		Properties: props,
		Timestamp:  s.now().UTC(),
	}
	if s.events == nil {
		return event, nil
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return event, nil
}

func (s *service) ListEvents(ctx context.Context, leadID, eventType string, limit int) ([]models.LeadEvent, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if s.events == nil {
		return []models.LeadEvent{}, nil
	}
	list, err := s.events.List(ctx, events.Query{LeadID: leadID, EventType: eventType, Limit: limit})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return list, nil
}

// Ingest dispatches a lead event received from the broker against the
// lead's current state.
func (s *service) Ingest(ctx context.Context, payload models.LeadEventPayload) (automation.Summary, error) {
	kind := automation.TriggerKind(payload.Kind)
	if !kind.Valid() {
		return automation.Summary{}, pkgerrors.ErrValidation.WithDetail("message", "unknown trigger kind: "+payload.Kind)
	}
	if payload.LeadID == "" {
		return automation.Summary{}, pkgerrors.ErrValidation.WithDetail("message", "lead_id is required")
	}

	lead, err := s.repo.GetLead(ctx, payload.LeadID)
	if err != nil {
		return automation.Summary{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	ctx = logging.WithLeadID(ctx, lead.ID)

	switch kind {
	case automation.TriggerLeadCreated:
		return s.triggers.OnLeadCreated(ctx, lead), nil
	case automation.TriggerLeadUpdated:
		return s.triggers.OnLeadUpdated(ctx, lead, payload.UpdatedFields), nil
	case automation.TriggerScoreChanged:
		if payload.OldScore == nil {
			return automation.Summary{}, pkgerrors.ErrValidation.WithDetail("message", "old_score is required")
		}
		return s.triggers.OnScoreChanged(ctx, lead, *payload.OldScore), nil
	default:
		if payload.EventType == "" {
			return automation.Summary{}, pkgerrors.ErrValidation.WithDetail("message", "event_type is required")
		}
		if _, err := s.trackEvent(ctx, lead, payload.EventType, "", payload.EventData); err != nil {
			return automation.Summary{}, err
		}
		return s.triggers.OnEvent(ctx, lead, payload.EventType, payload.EventData), nil
	}
}

func applyUpdate(lead *models.Lead, req UpdateLeadRequest) []string {
	updated := []string{}
	setString := func(field string, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			updated = append(updated, field)
		}
	}

	setString("email", &lead.Email, req.Email)
	setString("first_name", &lead.FirstName, req.FirstName)
	setString("last_name", &lead.LastName, req.LastName)
	setString("phone", &lead.Phone, req.Phone)
	setString("company", &lead.Company, req.Company)
	setString("job_title", &lead.JobTitle, req.JobTitle)
	setString("source", &lead.Source, req.Source)

	if req.LeadScore != nil && lead.LeadScore != *req.LeadScore {
		lead.LeadScore = *req.LeadScore
		updated = append(updated, "lead_score")
	}
	if req.Data != nil && !reflect.DeepEqual(lead.Data, req.Data) {
		lead.Data = req.Data
		updated = append(updated, "data")
	}
	return updated
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
