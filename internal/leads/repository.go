package leads

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

type Repository interface {
	CreateLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error)
	UpdateLead(ctx context.Context, lead *models.Lead) error
	DeleteLead(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const leadColumns = `id, email, first_name, last_name, phone, company, job_title, source, lead_score, data, created_at, updated_at`

func (r *PostgresRepository) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	data, err := encodeData(lead.Data)
	if err != nil {
		return err
	}

	query := `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		lead.ID, lead.Email, lead.FirstName, lead.LastName, lead.Phone, lead.Company,
		lead.JobTitle, lead.Source, lead.LeadScore, data, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("lead with email '%s' already exists", lead.Email))
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (r *PostgresRepository) ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// UpdateLead overwrites every mutable column of the lead and refreshes
// UpdatedAt.
func (r *PostgresRepository) UpdateLead(ctx context.Context, lead *models.Lead) error {
	data, err := encodeData(lead.Data)
	if err != nil {
		return err
	}
	lead.UpdatedAt = time.Now().UTC()

	query := `UPDATE leads SET email = $2, first_name = $3, last_name = $4, phone = $5,
		company = $6, job_title = $7, source = $8, lead_score = $9, data = $10, updated_at = $11
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.Email, lead.FirstName, lead.LastName, lead.Phone, lead.Company,
		lead.JobTitle, lead.Source, lead.LeadScore, data, lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("lead with email '%s' already exists", lead.Email))
		}
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return expectAffected(res, lead.ID)
}

func (r *PostgresRepository) DeleteLead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return expectAffected(res, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead models.Lead
		data []byte
	)
	if err := row.Scan(
		&lead.ID, &lead.Email, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Company,
		&lead.JobTitle, &lead.Source, &lead.LeadScore, &data, &lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &lead.Data); err != nil {
			return nil, fmt.Errorf("failed to decode lead data: %w", err)
		}
	}
	return &lead, nil
}

func encodeData(data map[string]interface{}) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead data: %w", err)
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func expectAffected(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}
