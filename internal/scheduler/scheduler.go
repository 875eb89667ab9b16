package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"leadflow/internal/logger"
	"leadflow/internal/templating"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
	"leadflow/pkg/tracing"
)

type AutomationStore interface {
	ListActiveAutomations(ctx context.Context) ([]models.CampaignAutomation, error)
	MarkRun(ctx context.Context, id string, at time.Time) error
}

type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListMembers(ctx context.Context, campaignID string) ([]models.Lead, error)
}

type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
}

type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string) bool
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.AutomationRun) error
}

// Scheduler periodically sends campaign templates to campaign members for
// every due campaign automation.
type Scheduler struct {
	automations AutomationStore
	campaigns   CampaignStore
	templates   TemplateStore
	email       EmailGateway
	runs        RunRecorder
	interval    time.Duration
	now         func() time.Time
	logger      logger.Logger
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithRunRecorder(r RunRecorder) Option {
	return func(s *Scheduler) {
		s.runs = r
	}
}

func New(automations AutomationStore, campaigns CampaignStore, templates TemplateStore, email EmailGateway, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		automations: automations,
		campaigns:   campaigns,
		templates:   templates,
		email:       email,
		interval:    300 * time.Second,
		now:         time.Now,
		logger:      log.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks immediately and then once per interval until ctx is cancelled.
// Tick errors are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfowCtx(ctx, "Campaign scheduler started", "interval", s.interval.String())

	s.safeTick(ctx)
	for {
		select {
		case <-ticker.C:
			s.safeTick(ctx)
		case <-ctx.Done():
			s.logger.InfowCtx(ctx, "Campaign scheduler stopped")
			return ctx.Err()
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	start := time.Now()
	status := "success"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			s.logger.ErrorwCtx(ctx, "Recovered panic in scheduler tick", "panic", fmt.Sprint(r))
		}
		metrics.ObserveSchedulerTick(time.Since(start), status)
	}()

	if err := s.Tick(ctx, s.now()); err != nil {
		status = "error"
		s.logger.ErrorwCtx(ctx, "Scheduler tick failed", "error", err)
	}
}

// Tick runs every active automation that is due at now. Only a failure to
// list automations or a cancelled context is returned.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	ctx, span := tracing.GetTracer("scheduler").Start(ctx, "scheduler.tick")
	defer span.End()

	automations, err := s.automations.ListActiveAutomations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list campaign automations: %w", err)
	}

	due := 0
	for _, a := range automations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.Active || !IsDue(a, now) {
			continue
		}
		due++
		if err := s.safeRunAutomation(ctx, a, now); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorwCtx(ctx, "Campaign automation failed",
				"automation_id", a.ID,
				"error", err,
			)
		}
	}

	span.SetAttributes(
		attribute.Int("automations", len(automations)),
		attribute.Int("due", due),
	)
	return nil
}

// safeRunAutomation turns a panic inside one automation into an error so the
// tick moves on to the next automation.
func (s *Scheduler) safeRunAutomation(ctx context.Context, a models.CampaignAutomation, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.RecoverPanic(r)
		}
	}()
	return s.runAutomation(ctx, a, now)
}

func (s *Scheduler) runAutomation(ctx context.Context, a models.CampaignAutomation, now time.Time) error {
	campaign, err := s.campaigns.GetCampaign(ctx, a.CampaignID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Skipping automation, campaign not found",
			"automation_id", a.ID,
			"campaign_id", a.CampaignID,
			"error", err,
		)
		return nil
	}

	tpl, err := s.templates.GetTemplate(ctx, a.TemplateID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Skipping automation, template not found",
			"automation_id", a.ID,
			"template_id", a.TemplateID,
			"error", err,
		)
		return nil
	}

	members, err := s.campaigns.ListMembers(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to list campaign members: %w", err)
	}

	sent, failed := 0, 0
	for _, lead := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		subject, body := templating.Render(tpl, map[string]interface{}{
			"first_name":    lead.FirstName,
			"last_name":     lead.LastName,
			"company":       lead.Company,
			"campaign_name": campaign.Name,
		})
		if s.send(ctx, a.ID, lead, subject, body) {
			sent++
			continue
		}
		failed++
		s.logger.WarnwCtx(ctx, "Failed to send campaign email",
			"automation_id", a.ID,
			"lead_id", lead.ID,
		)
	}

	if err := s.automations.MarkRun(ctx, a.ID, now); err != nil {
		return fmt.Errorf("failed to mark automation run: %w", err)
	}

	metrics.SchedulerAutomationsRunTotal.WithLabelValues(string(a.Schedule.Frequency)).Inc()
	s.logger.InfowCtx(ctx, "Campaign automation executed",
		"automation_id", a.ID,
		"campaign_id", campaign.ID,
		"sent", sent,
		"failed", failed,
	)
	s.recordRun(ctx, a, sent, failed, now)
	return nil
}

// send counts a panicking gateway as a failed delivery so the automation is
// still stamped and members already mailed are not mailed again next tick.
func (s *Scheduler) send(ctx context.Context, automationID string, lead models.Lead, subject, body string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			s.logger.ErrorwCtx(ctx, "Recovered panic sending campaign email",
				"automation_id", automationID,
				"lead_id", lead.ID,
				"error", pkgerrors.RecoverPanic(r),
			)
		}
	}()
	return s.email.Send(ctx, lead.Email, subject, body)
}

func (s *Scheduler) recordRun(ctx context.Context, a models.CampaignAutomation, sent, failed int, now time.Time) {
	if s.runs == nil {
		return
	}
	status := models.RunStatusSuccess
	if failed > 0 {
		status = models.RunStatusFailed
	}
	run := &models.AutomationRun{
		ID:           uuid.New().String(),
		Kind:         models.RunKindCampaign,
		AutomationID: a.ID,
		Status:       status,
		Succeeded:    sent,
		Failed:       failed,
		CreatedAt:    now.UTC(),
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record campaign run",
			"automation_id", a.ID,
			"error", err,
		)
	}
}
