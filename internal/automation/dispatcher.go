package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"leadflow/internal/logger"
	"leadflow/pkg/logging"
	"leadflow/pkg/metrics"
	"leadflow/pkg/models"
	"leadflow/pkg/tracing"
)

const tracerName = "automation"

type ActionExecutor interface {
	Execute(ctx context.Context, action Action, lead *models.Lead, facts map[string]interface{}) bool
}

// Summary counts what one trigger dispatch did.
type Summary struct {
	Trigger          TriggerKind `json:"trigger"`
	RulesEvaluated   int         `json:"rules_evaluated"`
	RulesMatched     int         `json:"rules_matched"`
	RulesErrored     int         `json:"rules_errored"`
	ActionsSucceeded int         `json:"actions_succeeded"`
	ActionsFailed    int         `json:"actions_failed"`
}

type Dispatcher struct {
	rules    RuleSource
	executor ActionExecutor
	runs     RunRecorder
	now      func() time.Time
	logger   logger.Logger
}

type DispatcherOption func(*Dispatcher)

func WithRunRecorder(r RunRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.runs = r
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(rules RuleSource, executor ActionExecutor, log logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		rules:    rules,
		executor: executor,
		now:      time.Now,
		logger:   log.Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) OnLeadCreated(ctx context.Context, lead *models.Lead) Summary {
	if lead == nil {
		return d.rejectNilLead(ctx, TriggerLeadCreated)
	}
	return d.Fire(ctx, TriggerLeadCreated, lead, LeadCreatedFacts(lead))
}

func (d *Dispatcher) OnLeadUpdated(ctx context.Context, lead *models.Lead, updatedFields []string) Summary {
	if lead == nil {
		return d.rejectNilLead(ctx, TriggerLeadUpdated)
	}
	return d.Fire(ctx, TriggerLeadUpdated, lead, LeadUpdatedFacts(lead, updatedFields))
}

func (d *Dispatcher) OnScoreChanged(ctx context.Context, lead *models.Lead, oldScore float64) Summary {
	if lead == nil {
		return d.rejectNilLead(ctx, TriggerScoreChanged)
	}
	return d.Fire(ctx, TriggerScoreChanged, lead, ScoreChangedFacts(lead, oldScore))
}

func (d *Dispatcher) OnEvent(ctx context.Context, lead *models.Lead, eventType string, eventData map[string]interface{}) Summary {
	if lead == nil {
		return d.rejectNilLead(ctx, TriggerEventOccurred)
	}
	return d.Fire(ctx, TriggerEventOccurred, lead, EventFacts(lead, eventType, eventData, d.now()))
}

// Fire evaluates every active rule for kind independently and runs the
// actions of the matching ones in order. Failures are logged and counted;
// they never stop later actions or rules and are never returned.
func (d *Dispatcher) Fire(ctx context.Context, kind TriggerKind, lead *models.Lead, facts map[string]interface{}) Summary {
	ctx = logging.WithLeadID(ctx, lead.ID)
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "automation.fire")
	defer span.End()
	span.SetAttributes(
		attribute.String("trigger", string(kind)),
		attribute.String("lead_id", lead.ID),
	)

	start := time.Now()
	summary := Summary{Trigger: kind}
	metrics.TriggerDispatchTotal.WithLabelValues(string(kind)).Inc()
	defer func() {
		metrics.ObserveDispatchDuration(string(kind), time.Since(start))
	}()

	rules, err := d.rules.RulesFor(ctx, kind)
	if err != nil {
		d.logger.ErrorwCtx(ctx, "Failed to load automation rules",
			"trigger", kind,
			"error", err,
		)
		return summary
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			d.logger.WarnwCtx(ctx, "Dispatch cancelled",
				"trigger", kind,
				"remaining_rules", len(rules)-summary.RulesEvaluated,
			)
			break
		}
		d.processRule(ctx, rule, lead, facts, &summary)
	}

	span.SetAttributes(
		attribute.Int("rules_matched", summary.RulesMatched),
		attribute.Int("actions_failed", summary.ActionsFailed),
	)
	d.logger.DebugwCtx(ctx, "Trigger dispatched",
		"trigger", kind,
		"rules_evaluated", summary.RulesEvaluated,
		"rules_matched", summary.RulesMatched,
		"rules_errored", summary.RulesErrored,
		"actions_succeeded", summary.ActionsSucceeded,
		"actions_failed", summary.ActionsFailed,
	)
	return summary
}

func (d *Dispatcher) processRule(ctx context.Context, rule Rule, lead *models.Lead, facts map[string]interface{}, summary *Summary) {
	summary.RulesEvaluated++

	matched, err := rule.Matches(facts)
	if err != nil {
		d.handleEvaluationError(ctx, rule, err)
		summary.RulesErrored++
		d.recordRun(ctx, rule, lead, models.RunStatusError, 0, 0, err.Error())
		return
	}
	if !matched {
		metrics.IncRuleEvaluation(rule.ID, "no_match")
		return
	}

	metrics.IncRuleEvaluation(rule.ID, "match")
	summary.RulesMatched++

	succeeded, failed := 0, 0
	for i, action := range rule.Actions {
		if d.executor.Execute(ctx, action, lead, facts) {
			succeeded++
			continue
		}
		failed++
		d.logger.ErrorwCtx(ctx, "Failed to execute action for rule",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"action_index", i,
			"action", actionName(action),
		)
	}
	summary.ActionsSucceeded += succeeded
	summary.ActionsFailed += failed

	status := models.RunStatusSuccess
	message := ""
	if failed > 0 {
		status = models.RunStatusFailed
		message = fmt.Sprintf("%d of %d actions failed", failed, len(rule.Actions))
	}
	d.recordRun(ctx, rule, lead, status, succeeded, failed, message)
}

func (d *Dispatcher) handleEvaluationError(ctx context.Context, rule Rule, err error) {
	metrics.IncRuleEvaluation(rule.ID, "error")
	d.logger.ErrorwCtx(ctx, "Rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)
}

func (d *Dispatcher) recordRun(ctx context.Context, rule Rule, lead *models.Lead, status string, succeeded, failed int, message string) {
	if d.runs == nil {
		return
	}
	run := &models.AutomationRun{
		ID:        uuid.New().String(),
		Kind:      models.RunKindRule,
		RuleID:    rule.ID,
		LeadID:    lead.ID,
		Trigger:   string(rule.Trigger),
		Status:    status,
		Succeeded: succeeded,
		Failed:    failed,
		Message:   message,
		CreatedAt: d.now().UTC(),
	}
	if err := d.runs.RecordRun(ctx, run); err != nil {
		d.logger.WarnwCtx(ctx, "Failed to record automation run",
			"rule_id", rule.ID,
			"error", err,
		)
	}
}

func (d *Dispatcher) rejectNilLead(ctx context.Context, kind TriggerKind) Summary {
	d.logger.ErrorwCtx(ctx, "Trigger fired without a lead", "trigger", kind)
	return Summary{Trigger: kind}
}
