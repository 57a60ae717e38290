// Package eventtemplate implements the create-from-template and
// save-as-template workflows: which fields a template or event can offer,
// which mandatory fields still need input, and the dialog state machines
// that drive a Gateway to create the new document.
package eventtemplate

import (
	"slices"

	"event-template-platform/internal/models"
)

// GroupID identifies a section of options
type GroupID string

const (
	GroupEventDetails GroupID = "event_details"
	GroupTicketing    GroupID = "ticketing_settings"
	GroupSponsorship  GroupID = "sponsorship_settings"
	GroupRelated      GroupID = "related_documents"
)

// Field describes one copyable field
type Field struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Group GroupID `json:"group"`
}

// Group is an ordered, labelled set of fields
type Group struct {
	ID     GroupID `json:"id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Related describes a linked-record option. On a template the rows live in
// TemplateField; on an event they are separate documents of Doctype, except
// payment gateways which are a child table on both.
type Related struct {
	Name          string
	Label         string
	TemplateField string
	Doctype       string
}

var catalog = []Group{
	{
		ID:    GroupEventDetails,
		Label: "Event Details",
		Fields: []Field{
			{Name: "category", Label: "Category"},
			{Name: "host", Label: "Host"},
			{Name: "banner_image", Label: "Banner Image"},
			{Name: "short_description", Label: "Short Description"},
			{Name: "about", Label: "About"},
			{Name: "medium", Label: "Medium"},
			{Name: "venue", Label: "Venue"},
			{Name: "time_zone", Label: "Time Zone"},
		},
	},
	{
		ID:    GroupTicketing,
		Label: "Ticketing Settings",
		Fields: []Field{
			{Name: "apply_tax", Label: "Tax Settings"},
			{Name: "tax_label", Label: "Tax Label"},
			{Name: "tax_percentage", Label: "Tax Percentage"},
			{Name: "ticket_email_template", Label: "Ticket Email Template"},
			{Name: "ticket_print_format", Label: "Ticket Print Format"},
		},
	},
	{
		ID:    GroupSponsorship,
		Label: "Sponsorship Settings",
		Fields: []Field{
			{Name: "auto_send_pitch_deck", Label: "Auto Send Pitch Deck"},
			{Name: "sponsor_deck_email_template", Label: "Sponsor Deck Email Template"},
			{Name: "sponsor_deck_reply_to", Label: "Sponsor Deck Reply To"},
			{Name: "sponsor_deck_cc", Label: "Sponsor Deck CC"},
			{Name: "sponsor_deck_attachments", Label: "Sponsor Deck Attachments"},
		},
	},
}

const relatedLabel = "Related Documents"

var related = []Related{
	{Name: "payment_gateways", Label: "Payment Gateways", TemplateField: "payment_gateways"},
	{Name: "ticket_types", Label: "Ticket Types", TemplateField: "template_ticket_types", Doctype: models.DoctypeTicketType},
	{Name: "add_ons", Label: "Add-ons", TemplateField: "template_add_ons", Doctype: models.DoctypeAddOn},
	{Name: "custom_fields", Label: "Custom Fields", TemplateField: "template_custom_fields", Doctype: models.DoctypeCustomField},
}

// Fields that are child tables rather than scalars.
var tableFields = map[string]bool{
	"sponsor_deck_attachments": true,
	"payment_gateways":         true,
}

var mandatoryFields = []string{"category", "host"}

var labels = func() map[string]string {
	m := make(map[string]string)
	for _, g := range catalog {
		for _, f := range g.Fields {
			m[f.Name] = f.Label
		}
	}
	for _, r := range related {
		m[r.Name] = r.Label
	}
	return m
}()

// Groups returns the event-details, ticketing and sponsorship groups in display order.
func Groups() []Group {
	out := make([]Group, len(catalog))
	for i, g := range catalog {
		fields := make([]Field, len(g.Fields))
		for j, f := range g.Fields {
			f.Group = g.ID
			fields[j] = f
		}
		out[i] = Group{ID: g.ID, Label: g.Label, Fields: fields}
	}
	return out
}

// Label returns the human-readable label of a field, or the name itself.
func Label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

// RelatedDocuments returns the linked-record options in display order.
func RelatedDocuments() []Related {
	return slices.Clone(related)
}

// CopyableFields returns the scalar fields copied verbatim between events and templates.
func CopyableFields() []string {
	var out []string
	for _, g := range catalog {
		for _, f := range g.Fields {
			if !tableFields[f.Name] {
				out = append(out, f.Name)
			}
		}
	}
	return out
}
