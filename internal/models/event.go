package models

import (
	"strconv"
	"strings"
	"time"
)

// Event represents an event in the system
type Event struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" db:"end_date"`
	IsPublished bool       `json:"is_published" db:"is_published"`

	EventSettings

	PaymentGateways        []PaymentGateway `json:"payment_gateways"`
	SponsorDeckAttachments []DeckAttachment `json:"sponsor_deck_attachments"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Name returns the event's document name
func (e *Event) Name() string {
	return strconv.FormatInt(e.ID, 10)
}

// Validate validates the event data
func (e *Event) Validate() error {
	if err := e.validateTitle(); err != nil {
		return err
	}

	if err := e.validateMandatory(); err != nil {
		return err
	}

	if err := e.validateDates(); err != nil {
		return err
	}

	if err := e.validateMedium(); err != nil {
		return err
	}

	return e.validateTax()
}

func (e *Event) validateTitle() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return NewValidationError("Title is required", "title")
	}
	if len(title) > 140 {
		return NewValidationError("Title must be at most 140 characters", "title")
	}
	return nil
}

// validateMandatory rejects events without a category or host
func (e *Event) validateMandatory() error {
	var labels, fields []string
	if strings.TrimSpace(e.Category) == "" {
		labels = append(labels, "Category")
		fields = append(fields, "category")
	}
	if strings.TrimSpace(e.Host) == "" {
		labels = append(labels, "Host")
		fields = append(fields, "host")
	}
	if len(fields) > 0 {
		return MissingFieldsError(labels, fields)
	}
	return nil
}

func (e *Event) validateDates() error {
	if e.StartDate.IsZero() {
		return NewValidationError("Start Date is required", "start_date")
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return NewValidationError("End Date cannot be before Start Date", "end_date")
	}
	return nil
}

// Document returns the event in document form, as served to clients.
func (e *Event) Document() Document {
	doc := Document{
		"doctype":                  DoctypeEvent,
		"name":                     e.Name(),
		"title":                    e.Title,
		"start_date":               e.StartDate.Format(time.DateOnly),
		"is_published":             check(e.IsPublished),
		"payment_gateways":         gatewayRows(e.PaymentGateways),
		"sponsor_deck_attachments": attachmentRows(e.SponsorDeckAttachments),
	}
	if e.EndDate != nil {
		doc["end_date"] = e.EndDate.Format(time.DateOnly)
	} else {
		doc["end_date"] = nil
	}
	e.EventSettings.fill(doc)
	return doc
}
