package management

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/constants"
	"leadflow/pkg/models"
)

// RecordRun appends an automation run to the audit log.
func (r *PostgresRepository) RecordRun(ctx context.Context, run *models.AutomationRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO automation_runs (id, kind, rule_id, automation_id, lead_id, trigger_type, status, succeeded, failed, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Kind, run.RuleID, run.AutomationID, run.LeadID, run.Trigger,
		run.Status, run.Succeeded, run.Failed, run.Message, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record automation run: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRuns(ctx context.Context, filter RunFilter) ([]models.AutomationRun, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("kind", filter.Kind)
	add("rule_id", filter.RuleID)
	add("automation_id", filter.AutomationID)
	add("lead_id", filter.LeadID)

	limit := filter.Limit
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	query := `SELECT id, kind, rule_id, automation_id, lead_id, trigger_type, status, succeeded, failed, message, created_at
		FROM automation_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation runs: %w", err)
	}
	defer rows.Close()

	runs := []models.AutomationRun{}
	for rows.Next() {
		var run models.AutomationRun
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.RuleID, &run.AutomationID, &run.LeadID, &run.Trigger,
			&run.Status, &run.Succeeded, &run.Failed, &run.Message, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate automation runs: %w", err)
	}
	return runs, nil
}
