package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-template-platform/internal/database"
	"event-template-platform/internal/models"
)

// EventRepository handles event data operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// LinkedRecords are the records owned by an event in their own tables
type LinkedRecords struct {
	TicketTypes  []models.TicketTypeSpec
	AddOns       []models.AddOnSpec
	CustomFields []models.CustomFieldSpec
}

// Create validates and inserts an event together with its linked records in
// one transaction. The event's ID and timestamps are set on success.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, linked LinkedRecords) error {
	event.ApplyTaxDefaults()
	if err := event.Validate(); err != nil {
		return err
	}
	for _, tt := range linked.TicketTypes {
		if err := tt.Validate(); err != nil {
			return err
		}
	}
	for _, a := range linked.AddOns {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for i := range linked.CustomFields {
		linked.CustomFields[i].Normalize()
		if err := linked.CustomFields[i].Validate(); err != nil {
			return err
		}
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
		links := NewLinkedRepository(r.db)
		for _, tt := range linked.TicketTypes {
			if _, err := links.createTicketType(ctx, tx, event.ID, tt); err != nil {
				return err
			}
		}
		for _, a := range linked.AddOns {
			if _, err := links.createAddOn(ctx, tx, event.ID, a); err != nil {
				return err
			}
		}
		for _, cf := range linked.CustomFields {
			if _, err := links.createCustomField(ctx, tx, event.ID, cf); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEvent(ctx context.Context, q dbtx, event *models.Event) error {
	gateways, err := jsonRows(event.PaymentGateways)
	if err != nil {
		return err
	}
	attachments, err := jsonRows(event.SponsorDeckAttachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (title, start_date, end_date, is_published, ` + settingsColumns + `,
			payment_gateways, sponsor_deck_attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	args := []any{event.Title, event.StartDate, event.EndDate, event.IsPublished}
	args = append(args, settingsArgs(&event.EventSettings)...)
	args = append(args, gateways, attachments, now, now)

	err = q.QueryRowContext(ctx, query, args...).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT id, title, start_date, end_date, is_published, ` + settingsColumns + `,
			payment_gateways, sponsor_deck_attachments, created_at, updated_at
		FROM events
		WHERE id = $1`

	event := &models.Event{}
	var endDate sql.NullTime
	var gateways, attachments []byte

	dest := []any{&event.ID, &event.Title, &event.StartDate, &endDate, &event.IsPublished}
	dest = append(dest, settingsDest(&event.EventSettings)...)
	dest = append(dest, &gateways, &attachments, &event.CreatedAt, &event.UpdatedAt)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %d: %w", id, models.ErrEventNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if endDate.Valid {
		event.EndDate = &endDate.Time
	}
	if err := decodeRows(gateways, &event.PaymentGateways); err != nil {
		return nil, err
	}
	if err := decodeRows(attachments, &event.SponsorDeckAttachments); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event; its linked records go with it
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, models.ErrEventNotFound)
	}
	return nil
}
