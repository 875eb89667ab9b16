package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

const campaignColumns = `id, name, description, type, status, created_at, updated_at`

func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Description, c.Type, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("campaign '%s' already exists", c.ID))
		}
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	var c models.Campaign
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Type, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) ListCampaigns(ctx context.Context, limit, offset int) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Type, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *PostgresRepository) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET name = $1, description = $2, type = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Description, c.Type, c.Status, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return expectAffected(res, c.ID)
}

func (r *PostgresRepository) DeleteCampaign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return expectAffected(res, id)
}

// AddMember enrolls a lead in a campaign. Enrolling an existing member is
// not an error; the result reports whether a row was inserted.
func (r *PostgresRepository) AddMember(ctx context.Context, campaignID, leadID string) (bool, error) {
	query := `
		INSERT INTO campaign_leads (campaign_id, lead_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id, lead_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, campaignID, leadID, time.Now().UTC())
	if err != nil {
		if pqCode(err) == "23503" {
			return false, pkgerrors.ErrNotFound.WithCause(err).
				WithDetail("message", fmt.Sprintf("campaign '%s' or lead '%s' does not exist", campaignID, leadID))
		}
		return false, fmt.Errorf("failed to add campaign member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, campaignID, leadID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM campaign_leads WHERE campaign_id = $1 AND lead_id = $2`, campaignID, leadID)
	if err != nil {
		return fmt.Errorf("failed to remove campaign member: %w", err)
	}
	return expectAffected(res, leadID)
}

func (r *PostgresRepository) ListMembers(ctx context.Context, campaignID string) ([]models.Lead, error) {
	query := `
		SELECT l.id, l.email, l.first_name, l.last_name, l.phone, l.company, l.job_title,
		       l.source, l.lead_score, l.data, l.created_at, l.updated_at
		FROM leads l
		JOIN campaign_leads cl ON cl.lead_id = l.id
		WHERE cl.campaign_id = $1
		ORDER BY cl.added_at ASC, l.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign members: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var (
			lead models.Lead
			data []byte
		)
		if err := rows.Scan(
			&lead.ID, &lead.Email, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Company,
			&lead.JobTitle, &lead.Source, &lead.LeadScore, &data, &lead.CreatedAt, &lead.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign member: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &lead.Data); err != nil {
				return nil, fmt.Errorf("lead %s: decode data: %w", lead.ID, err)
			}
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaign members: %w", err)
	}
	return leads, nil
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
