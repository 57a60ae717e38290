package models

import (
	"strings"
	"time"
)

// EventTemplate is a reusable set of event defaults. Templates are keyed by name.
type EventTemplate struct {
	TemplateName string `json:"template_name" db:"template_name"`

	EventSettings

	PaymentGateways        []PaymentGateway  `json:"payment_gateways"`
	SponsorDeckAttachments []DeckAttachment  `json:"sponsor_deck_attachments"`
	TicketTypes            []TicketTypeSpec  `json:"template_ticket_types"`
	AddOns                 []AddOnSpec       `json:"template_add_ons"`
	CustomFields           []CustomFieldSpec `json:"template_custom_fields"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate validates the template data
func (t *EventTemplate) Validate() error {
	name := strings.TrimSpace(t.TemplateName)
	if name == "" {
		return NewValidationError("Template Name is required", "template_name")
	}
	if len(name) > 140 {
		return NewValidationError("Template Name must be at most 140 characters", "template_name")
	}

	if err := t.validateMedium(); err != nil {
		return err
	}

	if err := t.validateTax(); err != nil {
		return err
	}

	for _, tt := range t.TicketTypes {
		if err := tt.Validate(); err != nil {
			return err
		}
	}

	for _, a := range t.AddOns {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	for _, cf := range t.CustomFields {
		if err := cf.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Document returns the template in document form, as served to clients.
func (t *EventTemplate) Document() Document {
	doc := Document{
		"doctype":                  DoctypeTemplate,
		"name":                     t.TemplateName,
		"template_name":            t.TemplateName,
		"payment_gateways":         gatewayRows(t.PaymentGateways),
		"sponsor_deck_attachments": attachmentRows(t.SponsorDeckAttachments),
	}

	ticketTypes := make([]any, 0, len(t.TicketTypes))
	for _, tt := range t.TicketTypes {
		ticketTypes = append(ticketTypes, tt.row())
	}
	doc["template_ticket_types"] = ticketTypes

	addOns := make([]any, 0, len(t.AddOns))
	for _, a := range t.AddOns {
		addOns = append(addOns, a.row())
	}
	doc["template_add_ons"] = addOns

	customFields := make([]any, 0, len(t.CustomFields))
	for _, cf := range t.CustomFields {
		customFields = append(customFields, cf.row())
	}
	doc["template_custom_fields"] = customFields

	t.EventSettings.fill(doc)
	return doc
}
