package models

import (
	"fmt"
	"strings"
	"time"
)

// TicketTypeSpec is the copyable part of a ticket type. Templates store these
// rows directly; events own full TicketType records.
type TicketTypeSpec struct {
	Title               string     `json:"title" db:"title"`
	Price               float64    `json:"price" db:"price"`
	Currency            string     `json:"currency" db:"currency"`
	IsPublished         bool       `json:"is_published" db:"is_published"`
	MaxTicketsAvailable int        `json:"max_tickets_available" db:"max_tickets_available"`
	AutoUnpublishAfter  *time.Time `json:"auto_unpublish_after,omitempty" db:"auto_unpublish_after"`
}

// TicketType represents a type of ticket for an event
type TicketType struct {
	ID      int64 `json:"id" db:"id"`
	EventID int64 `json:"event" db:"event_id"`
	TicketTypeSpec
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the ticket type data
func (tt *TicketTypeSpec) Validate() error {
	if strings.TrimSpace(tt.Title) == "" {
		return NewValidationError("Ticket Type title is required", "title")
	}
	if tt.Price < 0 {
		return NewValidationError(fmt.Sprintf("Ticket Type %s: price cannot be negative", tt.Title), "price")
	}
	if tt.MaxTicketsAvailable < 0 {
		return NewValidationError(fmt.Sprintf("Ticket Type %s: max tickets cannot be negative", tt.Title), "max_tickets_available")
	}
	return nil
}

func (tt *TicketTypeSpec) row() map[string]any {
	row := map[string]any{
		"title":                 tt.Title,
		"price":                 tt.Price,
		"currency":              tt.Currency,
		"is_published":          check(tt.IsPublished),
		"max_tickets_available": tt.MaxTicketsAvailable,
		"auto_unpublish_after":  nil,
	}
	if tt.AutoUnpublishAfter != nil {
		row["auto_unpublish_after"] = tt.AutoUnpublishAfter.Format(time.DateTime)
	}
	return row
}

// AddOnSpec is the copyable part of a ticket add-on
type AddOnSpec struct {
	Title             string  `json:"title" db:"title"`
	Price             float64 `json:"price" db:"price"`
	Currency          string  `json:"currency" db:"currency"`
	Description       string  `json:"description" db:"description"`
	UserSelectsOption bool    `json:"user_selects_option" db:"user_selects_option"`
	Options           string  `json:"options" db:"options"`
	Enabled           bool    `json:"enabled" db:"enabled"`
}

// AddOn represents an optional extra sold with tickets of an event
type AddOn struct {
	ID      int64 `json:"id" db:"id"`
	EventID int64 `json:"event" db:"event_id"`
	AddOnSpec
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the add-on data
func (a *AddOnSpec) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return NewValidationError("Add-on title is required", "title")
	}
	if a.Price < 0 {
		return NewValidationError(fmt.Sprintf("Add-on %s: price cannot be negative", a.Title), "price")
	}
	if a.UserSelectsOption && strings.TrimSpace(a.Options) == "" {
		return NewValidationError(fmt.Sprintf("Add-on %s: options are required when the user selects an option", a.Title), "options")
	}
	return nil
}

// OptionList splits the newline separated options
func (a *AddOnSpec) OptionList() []string {
	var out []string
	for _, line := range strings.Split(a.Options, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (a *AddOnSpec) row() map[string]any {
	return map[string]any{
		"title":               a.Title,
		"price":               a.Price,
		"currency":            a.Currency,
		"description":         a.Description,
		"user_selects_option": check(a.UserSelectsOption),
		"options":             a.Options,
		"enabled":             check(a.Enabled),
	}
}

// CustomFieldType is the input type of a custom booking/ticket field
type CustomFieldType string

const (
	FieldTypeData   CustomFieldType = "Data"
	FieldTypePhone  CustomFieldType = "Phone"
	FieldTypeEmail  CustomFieldType = "Email"
	FieldTypeSelect CustomFieldType = "Select"
	FieldTypeDate   CustomFieldType = "Date"
	FieldTypeNumber CustomFieldType = "Number"
)

// AppliedTo says whether a custom field is asked once per booking or per ticket
type AppliedTo string

const (
	AppliedToBooking AppliedTo = "Booking"
	AppliedToTicket  AppliedTo = "Ticket"
)

// CustomFieldSpec is the copyable part of a custom field
type CustomFieldSpec struct {
	Label        string          `json:"label" db:"label"`
	Fieldname    string          `json:"fieldname" db:"fieldname"`
	Fieldtype    CustomFieldType `json:"fieldtype" db:"fieldtype"`
	Options      string          `json:"options" db:"options"`
	AppliedTo    AppliedTo       `json:"applied_to" db:"applied_to"`
	Enabled      bool            `json:"enabled" db:"enabled"`
	Mandatory    bool            `json:"mandatory" db:"mandatory"`
	Placeholder  string          `json:"placeholder" db:"placeholder"`
	DefaultValue string          `json:"default_value" db:"default_value"`
	Order        int             `json:"order" db:"sort_order"`
}

// CustomField is an extra attendee question configured for an event
type CustomField struct {
	ID      int64 `json:"id" db:"id"`
	EventID int64 `json:"event" db:"event_id"`
	CustomFieldSpec
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the custom field data
func (cf *CustomFieldSpec) Validate() error {
	if strings.TrimSpace(cf.Label) == "" {
		return NewValidationError("Custom Field label is required", "label")
	}
	switch cf.Fieldtype {
	case FieldTypeData, FieldTypePhone, FieldTypeEmail, FieldTypeSelect, FieldTypeDate, FieldTypeNumber:
	default:
		return NewValidationError(fmt.Sprintf("Custom Field %s: invalid field type %q", cf.Label, cf.Fieldtype), "fieldtype")
	}
	switch cf.AppliedTo {
	case AppliedToBooking, AppliedToTicket:
	default:
		return NewValidationError(fmt.Sprintf("Custom Field %s: applied to must be Booking or Ticket", cf.Label), "applied_to")
	}
	if cf.Fieldtype == FieldTypeSelect && strings.TrimSpace(cf.Options) == "" {
		return NewValidationError(fmt.Sprintf("Custom Field %s: options are required for Select fields", cf.Label), "options")
	}
	return nil
}

// Normalize derives the fieldname from the label when it is empty.
func (cf *CustomFieldSpec) Normalize() {
	if cf.Fieldname == "" {
		cf.Fieldname = Scrub(cf.Label)
	}
}

// Scrub lowercases s and replaces anything that is not a letter or digit with "_".
func Scrub(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (cf *CustomFieldSpec) row() map[string]any {
	return map[string]any{
		"label":         cf.Label,
		"fieldname":     cf.Fieldname,
		"fieldtype":     string(cf.Fieldtype),
		"options":       cf.Options,
		"applied_to":    string(cf.AppliedTo),
		"enabled":       check(cf.Enabled),
		"mandatory":     check(cf.Mandatory),
		"placeholder":   cf.Placeholder,
		"default_value": cf.DefaultValue,
		"order":         cf.Order,
	}
}
