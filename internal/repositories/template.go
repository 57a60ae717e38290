package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-template-platform/internal/models"
)

// TemplateRepository handles event template data operations
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `template_name, ` + settingsColumns + `,
	payment_gateways, sponsor_deck_attachments, template_ticket_types, template_add_ons, template_custom_fields,
	created_at, updated_at`

// Create validates and inserts a template. A template with the same name
// already existing yields a ValidationError wrapping ErrDuplicateEntry.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.EventTemplate) error {
	tmpl.TemplateName = strings.TrimSpace(tmpl.TemplateName)
	tmpl.ApplyTaxDefaults()
	for i := range tmpl.CustomFields {
		tmpl.CustomFields[i].Normalize()
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}

	encoded, err := encodeTemplateRows(tmpl)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO event_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25)
		RETURNING created_at, updated_at`

	now := time.Now()
	args := []any{tmpl.TemplateName}
	args = append(args, settingsArgs(&tmpl.EventSettings)...)
	args = append(args, encoded...)
	args = append(args, now, now)

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", duplicateTemplate(tmpl.TemplateName), models.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func encodeTemplateRows(tmpl *models.EventTemplate) ([]any, error) {
	gateways, err := jsonRows(tmpl.PaymentGateways)
	if err != nil {
		return nil, err
	}
	attachments, err := jsonRows(tmpl.SponsorDeckAttachments)
	if err != nil {
		return nil, err
	}
	ticketTypes, err := jsonRows(tmpl.TicketTypes)
	if err != nil {
		return nil, err
	}
	addOns, err := jsonRows(tmpl.AddOns)
	if err != nil {
		return nil, err
	}
	customFields, err := jsonRows(tmpl.CustomFields)
	if err != nil {
		return nil, err
	}
	return []any{gateways, attachments, ticketTypes, addOns, customFields}, nil
}

func duplicateTemplate(name string) *models.ValidationError {
	return models.NewValidationError(fmt.Sprintf("Event Template %s already exists", name), "template_name")
}

// GetByName retrieves a template by its name
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*models.EventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM event_templates WHERE template_name = $1`

	tmpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", name, models.ErrTemplateNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tmpl, nil
}

// List returns every template ordered by name
func (r *TemplateRepository) List(ctx context.Context) ([]*models.EventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM event_templates ORDER BY template_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.EventTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

// Delete removes a template by name
func (r *TemplateRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM event_templates WHERE template_name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", name, models.ErrTemplateNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*models.EventTemplate, error) {
	tmpl := &models.EventTemplate{}
	var gateways, attachments, ticketTypes, addOns, customFields []byte

	dest := []any{&tmpl.TemplateName}
	dest = append(dest, settingsDest(&tmpl.EventSettings)...)
	dest = append(dest, &gateways, &attachments, &ticketTypes, &addOns, &customFields, &tmpl.CreatedAt, &tmpl.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := decodeRows(gateways, &tmpl.PaymentGateways); err != nil {
		return nil, err
	}
	if err := decodeRows(attachments, &tmpl.SponsorDeckAttachments); err != nil {
		return nil, err
	}
	if err := decodeRows(ticketTypes, &tmpl.TicketTypes); err != nil {
		return nil, err
	}
	if err := decodeRows(addOns, &tmpl.AddOns); err != nil {
		return nil, err
	}
	if err := decodeRows(customFields, &tmpl.CustomFields); err != nil {
		return nil, err
	}
	return tmpl, nil
}
