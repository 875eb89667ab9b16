package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"leadflow/internal/automation"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

type RuleRepository interface {
	CreateRule(ctx context.Context, rule *automation.Rule) error
	ListRules(ctx context.Context) ([]automation.Rule, error)
	GetRule(ctx context.Context, id string) (*automation.Rule, error)
	UpdateRule(ctx context.Context, rule *automation.Rule) error
	DeleteRule(ctx context.Context, id string) error
	ListActiveRules(ctx context.Context) ([]automation.Rule, error)
}

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, tpl *models.EmailTemplate) error
	ListTemplates(ctx context.Context) ([]models.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	ListCampaigns(ctx context.Context, limit, offset int) ([]models.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *models.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	AddMember(ctx context.Context, campaignID, leadID string) (bool, error)
	RemoveMember(ctx context.Context, campaignID, leadID string) error
	ListMembers(ctx context.Context, campaignID string) ([]models.Lead, error)
}

type AutomationRepository interface {
	CreateAutomation(ctx context.Context, a *models.CampaignAutomation) error
	ListAutomations(ctx context.Context, campaignID string) ([]models.CampaignAutomation, error)
	GetAutomation(ctx context.Context, id string) (*models.CampaignAutomation, error)
	SetAutomationActive(ctx context.Context, id string, active bool) error
	DeleteAutomation(ctx context.Context, id string) error
	ListActiveAutomations(ctx context.Context) ([]models.CampaignAutomation, error)
	MarkRun(ctx context.Context, id string, at time.Time) error
}

type RunRepository interface {
	RecordRun(ctx context.Context, run *models.AutomationRun) error
	ListRuns(ctx context.Context, filter RunFilter) ([]models.AutomationRun, error)
}

type Repository interface {
	RuleRepository
	TemplateRepository
	CampaignRepository
	AutomationRepository
	RunRepository
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const ruleColumns = `id, name, description, trigger_type, conditions, actions, is_active, created_at, updated_at`

func (r *PostgresRepository) CreateRule(ctx context.Context, rule *automation.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	conditions, actions, err := encodeRuleBody(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, string(rule.Trigger),
		conditions, actions, rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule '%s' already exists", rule.ID))
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetRule(ctx context.Context, id string) (*automation.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (r *PostgresRepository) ListRules(ctx context.Context) ([]automation.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules ORDER BY created_at DESC`
	return r.queryRules(ctx, query)
}

// ListActiveRules returns every active rule in creation order, which is the
// order the dispatcher evaluates them in.
func (r *PostgresRepository) ListActiveRules(ctx context.Context) ([]automation.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE is_active = TRUE ORDER BY created_at ASC, id ASC`
	return r.queryRules(ctx, query)
}

// RulesFor reads active rules of one trigger kind straight from the table.
// It serves as the rule source when the in-memory cache is disabled.
func (r *PostgresRepository) RulesFor(ctx context.Context, kind automation.TriggerKind) ([]automation.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE is_active = TRUE AND trigger_type = $1
		ORDER BY created_at ASC, id ASC`
	return r.queryRules(ctx, query, string(kind))
}

func (r *PostgresRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]automation.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := []automation.Rule{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

func (r *PostgresRepository) UpdateRule(ctx context.Context, rule *automation.Rule) error {
	rule.UpdatedAt = time.Now().UTC()

	conditions, actions, err := encodeRuleBody(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_rules
		SET name = $1, description = $2, trigger_type = $3, conditions = $4, actions = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Description, string(rule.Trigger),
		conditions, actions, rule.Active, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return expectAffected(res, rule.ID)
}

func (r *PostgresRepository) DeleteRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return expectAffected(res, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*automation.Rule, error) {
	var (
		rule       automation.Rule
		trigger    string
		conditions []byte
		actions    []byte
	)
	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &trigger,
		&conditions, &actions, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Trigger = automation.TriggerKind(trigger)

	if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("rule %s: decode conditions: %w", rule.ID, err)
	}
	if err := json.Unmarshal(actions, &rule.Actions); err != nil {
		return nil, fmt.Errorf("rule %s: decode actions: %w", rule.ID, err)
	}
	return &rule, nil
}

func encodeRuleBody(rule *automation.Rule) ([]byte, []byte, error) {
	conds := rule.Conditions
	if conds == nil {
		conds = []automation.Condition{}
	}
	conditions, err := json.Marshal(conds)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions.Specs())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode actions: %w", err)
	}
	return conditions, actions, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint")
}

func expectAffected(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}
