package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

const automationColumns = `id, campaign_id, template_id, start_date, frequency, end_date, is_active, last_run_at, created_at, updated_at`

func (r *PostgresRepository) CreateAutomation(ctx context.Context, a *models.CampaignAutomation) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO campaign_automations (` + automationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.CampaignID, a.TemplateID,
		a.Schedule.StartDate, string(a.Schedule.Frequency), a.Schedule.EndDate,
		a.Active, a.LastRunAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == "23503" {
			return pkgerrors.ErrNotFound.WithCause(err).
				WithDetail("message", fmt.Sprintf("campaign '%s' or template '%s' does not exist", a.CampaignID, a.TemplateID))
		}
		return fmt.Errorf("failed to create campaign automation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAutomation(ctx context.Context, id string) (*models.CampaignAutomation, error) {
	query := `SELECT ` + automationColumns + ` FROM campaign_automations WHERE id = $1`

	a, err := scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign automation: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListAutomations(ctx context.Context, campaignID string) ([]models.CampaignAutomation, error) {
	query := `SELECT ` + automationColumns + ` FROM campaign_automations WHERE campaign_id = $1 ORDER BY created_at ASC`
	return r.queryAutomations(ctx, query, campaignID)
}

func (r *PostgresRepository) ListActiveAutomations(ctx context.Context) ([]models.CampaignAutomation, error) {
	query := `SELECT ` + automationColumns + ` FROM campaign_automations WHERE is_active = TRUE ORDER BY created_at ASC, id ASC`
	return r.queryAutomations(ctx, query)
}

func (r *PostgresRepository) queryAutomations(ctx context.Context, query string, args ...interface{}) ([]models.CampaignAutomation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign automations: %w", err)
	}
	defer rows.Close()

	automations := []models.CampaignAutomation{}
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign automation: %w", err)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaign automations: %w", err)
	}
	return automations, nil
}

func (r *PostgresRepository) SetAutomationActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaign_automations SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update campaign automation status: %w", err)
	}
	return expectAffected(res, id)
}

func (r *PostgresRepository) DeleteAutomation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaign_automations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign automation: %w", err)
	}
	return expectAffected(res, id)
}

// MarkRun stamps the last run time. Only the scheduler calls it.
func (r *PostgresRepository) MarkRun(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaign_automations SET last_run_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign automation run: %w", err)
	}
	return expectAffected(res, id)
}

func scanAutomation(row rowScanner) (*models.CampaignAutomation, error) {
	var (
		a         models.CampaignAutomation
		frequency string
		endDate   sql.NullTime
		lastRunAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.CampaignID, &a.TemplateID,
		&a.Schedule.StartDate, &frequency, &endDate,
		&a.Active, &lastRunAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Schedule.Frequency = models.Frequency(frequency)
	if endDate.Valid {
		t := endDate.Time
		a.Schedule.EndDate = &t
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		a.LastRunAt = &t
	}
	return &a, nil
}
