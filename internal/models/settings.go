package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Medium is how an event is attended
type Medium string

const (
	MediumInPerson Medium = "In Person"
	MediumOnline   Medium = "Online"
)

// Default tax settings applied when tax is enabled without explicit values.
const (
	DefaultTaxLabel      = "GST"
	DefaultTaxPercentage = 18
)

// EventSettings holds the scalar fields shared by events and templates.
// Field names in Get/Set/Copy match the JSON names.
type EventSettings struct {
	Category         string `json:"category"`
	Host             string `json:"host"`
	BannerImage      string `json:"banner_image"`
	ShortDescription string `json:"short_description"`
	About            string `json:"about"`
	Medium           Medium `json:"medium"`
	Venue            string `json:"venue"`
	TimeZone         string `json:"time_zone"`

	ApplyTax            bool    `json:"apply_tax"`
	TaxLabel            string  `json:"tax_label"`
	TaxPercentage       float64 `json:"tax_percentage"`
	TicketEmailTemplate string  `json:"ticket_email_template"`
	TicketPrintFormat   string  `json:"ticket_print_format"`

	AutoSendPitchDeck        bool   `json:"auto_send_pitch_deck"`
	SponsorDeckEmailTemplate string `json:"sponsor_deck_email_template"`
	SponsorDeckReplyTo       string `json:"sponsor_deck_reply_to"`
	SponsorDeckCC            string `json:"sponsor_deck_cc"`
}

// PaymentGateway is a row of the payment_gateways child table
type PaymentGateway struct {
	PaymentGateway string `json:"payment_gateway"`
}

// DeckAttachment is a row of the sponsor_deck_attachments child table
type DeckAttachment struct {
	File string `json:"file"`
}

// Get returns the value of a settings field in document form.
func (s *EventSettings) Get(field string) (any, bool) {
	switch field {
	case "category":
		return s.Category, true
	case "host":
		return s.Host, true
	case "banner_image":
		return s.BannerImage, true
	case "short_description":
		return s.ShortDescription, true
	case "about":
		return s.About, true
	case "medium":
		return string(s.Medium), true
	case "venue":
		return s.Venue, true
	case "time_zone":
		return s.TimeZone, true
	case "apply_tax":
		return check(s.ApplyTax), true
	case "tax_label":
		return s.TaxLabel, true
	case "tax_percentage":
		return s.TaxPercentage, true
	case "ticket_email_template":
		return s.TicketEmailTemplate, true
	case "ticket_print_format":
		return s.TicketPrintFormat, true
	case "auto_send_pitch_deck":
		return check(s.AutoSendPitchDeck), true
	case "sponsor_deck_email_template":
		return s.SponsorDeckEmailTemplate, true
	case "sponsor_deck_reply_to":
		return s.SponsorDeckReplyTo, true
	case "sponsor_deck_cc":
		return s.SponsorDeckCC, true
	}
	return nil, false
}

// Set assigns a settings field from its string form.
func (s *EventSettings) Set(field, value string) error {
	switch field {
	case "category":
		s.Category = value
	case "host":
		s.Host = value
	case "banner_image":
		s.BannerImage = value
	case "short_description":
		s.ShortDescription = value
	case "about":
		s.About = value
	case "medium":
		s.Medium = Medium(value)
	case "venue":
		s.Venue = value
	case "time_zone":
		s.TimeZone = value
	case "apply_tax":
		b, err := parseCheck(value)
		if err != nil {
			return fmt.Errorf("apply_tax: %w", err)
		}
		s.ApplyTax = b
	case "tax_label":
		s.TaxLabel = value
	case "tax_percentage":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("tax_percentage: %w", ErrInvalidInput)
		}
		s.TaxPercentage = f
	case "ticket_email_template":
		s.TicketEmailTemplate = value
	case "ticket_print_format":
		s.TicketPrintFormat = value
	case "auto_send_pitch_deck":
		b, err := parseCheck(value)
		if err != nil {
			return fmt.Errorf("auto_send_pitch_deck: %w", err)
		}
		s.AutoSendPitchDeck = b
	case "sponsor_deck_email_template":
		s.SponsorDeckEmailTemplate = value
	case "sponsor_deck_reply_to":
		s.SponsorDeckReplyTo = value
	case "sponsor_deck_cc":
		s.SponsorDeckCC = value
	default:
		return fmt.Errorf("unknown field %q: %w", field, ErrInvalidInput)
	}
	return nil
}

// CopyFrom copies every field named in fields from src.
func (s *EventSettings) CopyFrom(src *EventSettings, fields []string) {
	for _, field := range fields {
		switch field {
		case "category":
			s.Category = src.Category
		case "host":
			s.Host = src.Host
		case "banner_image":
			s.BannerImage = src.BannerImage
		case "short_description":
			s.ShortDescription = src.ShortDescription
		case "about":
			s.About = src.About
		case "medium":
			s.Medium = src.Medium
		case "venue":
			s.Venue = src.Venue
		case "time_zone":
			s.TimeZone = src.TimeZone
		case "apply_tax":
			s.ApplyTax = src.ApplyTax
		case "tax_label":
			s.TaxLabel = src.TaxLabel
		case "tax_percentage":
			s.TaxPercentage = src.TaxPercentage
		case "ticket_email_template":
			s.TicketEmailTemplate = src.TicketEmailTemplate
		case "ticket_print_format":
			s.TicketPrintFormat = src.TicketPrintFormat
		case "auto_send_pitch_deck":
			s.AutoSendPitchDeck = src.AutoSendPitchDeck
		case "sponsor_deck_email_template":
			s.SponsorDeckEmailTemplate = src.SponsorDeckEmailTemplate
		case "sponsor_deck_reply_to":
			s.SponsorDeckReplyTo = src.SponsorDeckReplyTo
		case "sponsor_deck_cc":
			s.SponsorDeckCC = src.SponsorDeckCC
		}
	}
}

// ApplyTaxDefaults fills the tax label and percentage when tax is enabled.
func (s *EventSettings) ApplyTaxDefaults() {
	if !s.ApplyTax {
		return
	}
	if s.TaxLabel == "" {
		s.TaxLabel = DefaultTaxLabel
	}
	if s.TaxPercentage == 0 {
		s.TaxPercentage = DefaultTaxPercentage
	}
}

func (s *EventSettings) validateMedium() error {
	switch s.Medium {
	case "", MediumInPerson, MediumOnline:
		return nil
	}
	return NewValidationError(fmt.Sprintf("Medium must be %q or %q", MediumInPerson, MediumOnline), "medium")
}

func (s *EventSettings) validateTax() error {
	if s.TaxPercentage < 0 || s.TaxPercentage > 100 {
		return NewValidationError("Tax Percentage must be between 0 and 100", "tax_percentage")
	}
	return nil
}

func (s *EventSettings) fill(doc Document) {
	for _, field := range settingsFields {
		v, _ := s.Get(field)
		doc[field] = v
	}
}

var settingsFields = []string{
	"category", "host", "banner_image", "short_description", "about", "medium", "venue", "time_zone",
	"apply_tax", "tax_label", "tax_percentage", "ticket_email_template", "ticket_print_format",
	"auto_send_pitch_deck", "sponsor_deck_email_template", "sponsor_deck_reply_to", "sponsor_deck_cc",
}

func parseCheck(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true, nil
	case "", "0", "false", "no":
		return false, nil
	}
	return false, ErrInvalidInput
}

func gatewayRows(gateways []PaymentGateway) []any {
	rows := make([]any, 0, len(gateways))
	for _, g := range gateways {
		rows = append(rows, map[string]any{"payment_gateway": g.PaymentGateway})
	}
	return rows
}

func attachmentRows(attachments []DeckAttachment) []any {
	rows := make([]any, 0, len(attachments))
	for _, a := range attachments {
		rows = append(rows, map[string]any{"file": a.File})
	}
	return rows
}
