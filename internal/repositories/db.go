package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"event-template-platform/internal/models"

	"github.com/lib/pq"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repository methods can
// run inside a caller's transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// settingsColumns are the EventSettings columns shared by events and
// event_templates, in scan order.
const settingsColumns = `category, host, banner_image, short_description, about, medium, venue, time_zone,
	apply_tax, tax_label, tax_percentage, ticket_email_template, ticket_print_format,
	auto_send_pitch_deck, sponsor_deck_email_template, sponsor_deck_reply_to, sponsor_deck_cc`

func settingsDest(s *models.EventSettings) []any {
	return []any{
		&s.Category, &s.Host, &s.BannerImage, &s.ShortDescription, &s.About, &s.Medium, &s.Venue, &s.TimeZone,
		&s.ApplyTax, &s.TaxLabel, &s.TaxPercentage, &s.TicketEmailTemplate, &s.TicketPrintFormat,
		&s.AutoSendPitchDeck, &s.SponsorDeckEmailTemplate, &s.SponsorDeckReplyTo, &s.SponsorDeckCC,
	}
}

func settingsArgs(s *models.EventSettings) []any {
	return []any{
		s.Category, s.Host, s.BannerImage, s.ShortDescription, s.About, string(s.Medium), s.Venue, s.TimeZone,
		s.ApplyTax, s.TaxLabel, s.TaxPercentage, s.TicketEmailTemplate, s.TicketPrintFormat,
		s.AutoSendPitchDeck, s.SponsorDeckEmailTemplate, s.SponsorDeckReplyTo, s.SponsorDeckCC,
	}
}

// jsonRows marshals a child table for a JSONB column; nil becomes [].
func jsonRows[T any](rows []T) ([]byte, error) {
	if rows == nil {
		rows = []T{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode child rows: %w", err)
	}
	return b, nil
}

func decodeRows[T any](raw []byte, dest *[]T) error {
	if len(raw) == 0 {
		*dest = []T{}
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode child rows: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
