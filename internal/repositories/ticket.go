package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"event-template-platform/internal/models"
)

// LinkedRepository handles the records an event owns in separate tables:
// ticket types, add-ons and custom fields.
type LinkedRepository struct {
	db *sql.DB
}

// NewLinkedRepository creates a new linked record repository
func NewLinkedRepository(db *sql.DB) *LinkedRepository {
	return &LinkedRepository{db: db}
}

// linkedTables maps each linked doctype to its table
var linkedTables = map[string]string{
	models.DoctypeTicketType:  "ticket_types",
	models.DoctypeAddOn:       "ticket_add_ons",
	models.DoctypeCustomField: "custom_fields",
}

// Count returns how many records of doctype belong to the event
func (r *LinkedRepository) Count(ctx context.Context, doctype string, eventID int64) (int, error) {
	table, ok := linkedTables[doctype]
	if !ok {
		return 0, fmt.Errorf("%q: %w", doctype, models.ErrUnknownDoctype)
	}

	var count int
	query := "SELECT COUNT(*) FROM " + table + " WHERE event_id = $1"
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// Ticket types

func (r *LinkedRepository) createTicketType(ctx context.Context, q dbtx, eventID int64, spec models.TicketTypeSpec) (*models.TicketType, error) {
	query := `
		INSERT INTO ticket_types (event_id, title, price, currency, is_published, max_tickets_available, auto_unpublish_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	tt := &models.TicketType{EventID: eventID, TicketTypeSpec: spec}
	err := q.QueryRowContext(ctx, query,
		eventID,
		spec.Title,
		spec.Price,
		spec.Currency,
		spec.IsPublished,
		spec.MaxTicketsAvailable,
		spec.AutoUnpublishAfter,
	).Scan(&tt.ID, &tt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}
	return tt, nil
}

// CreateTicketType adds a ticket type to an event
func (r *LinkedRepository) CreateTicketType(ctx context.Context, eventID int64, spec models.TicketTypeSpec) (*models.TicketType, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return r.createTicketType(ctx, r.db, eventID, spec)
}

// GetTicketTypesByEvent retrieves all ticket types for an event in creation order
func (r *LinkedRepository) GetTicketTypesByEvent(ctx context.Context, eventID int64) ([]*models.TicketType, error) {
	query := `
		SELECT id, event_id, title, price, currency, is_published, max_tickets_available, auto_unpublish_after, created_at
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*models.TicketType
	for rows.Next() {
		tt := &models.TicketType{}
		err := rows.Scan(
			&tt.ID,
			&tt.EventID,
			&tt.Title,
			&tt.Price,
			&tt.Currency,
			&tt.IsPublished,
			&tt.MaxTicketsAvailable,
			&tt.AutoUnpublishAfter,
			&tt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, tt)
	}

	return ticketTypes, rows.Err()
}

// Add-ons

func (r *LinkedRepository) createAddOn(ctx context.Context, q dbtx, eventID int64, spec models.AddOnSpec) (*models.AddOn, error) {
	query := `
		INSERT INTO ticket_add_ons (event_id, title, price, currency, description, user_selects_option, options, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	a := &models.AddOn{EventID: eventID, AddOnSpec: spec}
	err := q.QueryRowContext(ctx, query,
		eventID,
		spec.Title,
		spec.Price,
		spec.Currency,
		spec.Description,
		spec.UserSelectsOption,
		spec.Options,
		spec.Enabled,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create add-on: %w", err)
	}
	return a, nil
}

// CreateAddOn adds an add-on to an event
func (r *LinkedRepository) CreateAddOn(ctx context.Context, eventID int64, spec models.AddOnSpec) (*models.AddOn, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return r.createAddOn(ctx, r.db, eventID, spec)
}

// GetAddOnsByEvent retrieves all add-ons for an event in creation order
func (r *LinkedRepository) GetAddOnsByEvent(ctx context.Context, eventID int64) ([]*models.AddOn, error) {
	query := `
		SELECT id, event_id, title, price, currency, description, user_selects_option, options, enabled, created_at
		FROM ticket_add_ons
		WHERE event_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get add-ons: %w", err)
	}
	defer rows.Close()

	var addOns []*models.AddOn
	for rows.Next() {
		a := &models.AddOn{}
		err := rows.Scan(
			&a.ID,
			&a.EventID,
			&a.Title,
			&a.Price,
			&a.Currency,
			&a.Description,
			&a.UserSelectsOption,
			&a.Options,
			&a.Enabled,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan add-on: %w", err)
		}
		addOns = append(addOns, a)
	}

	return addOns, rows.Err()
}

// Custom fields

func (r *LinkedRepository) createCustomField(ctx context.Context, q dbtx, eventID int64, spec models.CustomFieldSpec) (*models.CustomField, error) {
	query := `
		INSERT INTO custom_fields (event_id, label, fieldname, fieldtype, options, applied_to, enabled, mandatory,
			placeholder, default_value, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	cf := &models.CustomField{EventID: eventID, CustomFieldSpec: spec}
	err := q.QueryRowContext(ctx, query,
		eventID,
		spec.Label,
		spec.Fieldname,
		string(spec.Fieldtype),
		spec.Options,
		string(spec.AppliedTo),
		spec.Enabled,
		spec.Mandatory,
		spec.Placeholder,
		spec.DefaultValue,
		spec.Order,
	).Scan(&cf.ID, &cf.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom field: %w", err)
	}
	return cf, nil
}

// CreateCustomField adds a custom field to an event
func (r *LinkedRepository) CreateCustomField(ctx context.Context, eventID int64, spec models.CustomFieldSpec) (*models.CustomField, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return r.createCustomField(ctx, r.db, eventID, spec)
}

// GetCustomFieldsByEvent retrieves all custom fields for an event by display order
func (r *LinkedRepository) GetCustomFieldsByEvent(ctx context.Context, eventID int64) ([]*models.CustomField, error) {
	query := `
		SELECT id, event_id, label, fieldname, fieldtype, options, applied_to, enabled, mandatory,
			placeholder, default_value, sort_order, created_at
		FROM custom_fields
		WHERE event_id = $1
		ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.CustomField
	for rows.Next() {
		cf := &models.CustomField{}
		err := rows.Scan(
			&cf.ID,
			&cf.EventID,
			&cf.Label,
			&cf.Fieldname,
			&cf.Fieldtype,
			&cf.Options,
			&cf.AppliedTo,
			&cf.Enabled,
			&cf.Mandatory,
			&cf.Placeholder,
			&cf.DefaultValue,
			&cf.Order,
			&cf.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}
		fields = append(fields, cf)
	}

	return fields, rows.Err()
}
