package models

import "fmt"

// Doctypes understood by the document endpoints.
const (
	DoctypeEvent       = "Buzz Event"
	DoctypeTemplate    = "Event Template"
	DoctypeTicketType  = "Event Ticket Type"
	DoctypeAddOn       = "Ticket Add-on"
	DoctypeCustomField = "Buzz Custom Field"
)

// Document is a loosely typed snapshot of a stored record, keyed by field
// name. Check fields are 0/1 integers and child tables are slices.
type Document map[string]any

// Name returns the document's primary key.
func (d Document) Name() string {
	return d.String("name")
}

// String returns the field formatted as a string; nil becomes "".
func (d Document) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Rows returns the length of a child-table field, or 0 if the field is not a sequence.
func (d Document) Rows(field string) int {
	switch v := d[field].(type) {
	case []any:
		return len(v)
	case []map[string]any:
		return len(v)
	case []Document:
		return len(v)
	default:
		return 0
	}
}

func check(b bool) int {
	if b {
		return 1
	}
	return 0
}
