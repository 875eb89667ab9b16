package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/models"
)

const templateColumns = `id, name, subject, content, variables, created_at, updated_at`

func (r *PostgresRepository) CreateTemplate(ctx context.Context, tpl *models.EmailTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	variables, err := encodeVariables(tpl.Variables)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO email_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Subject, tpl.Body, variables, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("template with name '%s' already exists", tpl.Name))
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates WHERE id = $1`

	tpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []models.EmailTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

func (r *PostgresRepository) UpdateTemplate(ctx context.Context, tpl *models.EmailTemplate) error {
	tpl.UpdatedAt = time.Now().UTC()

	variables, err := encodeVariables(tpl.Variables)
	if err != nil {
		return err
	}

	query := `
		UPDATE email_templates
		SET name = $1, subject = $2, content = $3, variables = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		tpl.Name, tpl.Subject, tpl.Body, variables, tpl.UpdatedAt, tpl.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("template with name '%s' already exists", tpl.Name))
		}
		return fmt.Errorf("failed to update template: %w", err)
	}
	return expectAffected(res, tpl.ID)
}

func (r *PostgresRepository) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		// campaign_automations.template_id is ON DELETE RESTRICT
		if pqCode(err) == "23503" {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", "template is used by a campaign automation")
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return expectAffected(res, id)
}

func scanTemplate(row rowScanner) (*models.EmailTemplate, error) {
	var (
		tpl       models.EmailTemplate
		variables []byte
	)
	if err := row.Scan(
		&tpl.ID, &tpl.Name, &tpl.Subject, &tpl.Body, &variables, &tpl.CreatedAt, &tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &tpl.Variables); err != nil {
			return nil, fmt.Errorf("template %s: decode variables: %w", tpl.ID, err)
		}
	}
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	return &tpl, nil
}

func encodeVariables(vars []string) ([]byte, error) {
	if vars == nil {
		vars = []string{}
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template variables: %w", err)
	}
	return data, nil
}
