package eventtemplate

import "event-template-platform/internal/models"

// MandatoryInput is the manual-entry field for one mandatory field.
type MandatoryInput struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Visible  bool   `json:"visible"`
	Required bool   `json:"required"`
}

// Reconciliation is the outcome of Reconcile.
type Reconciliation struct {
	Missing        []string         `json:"missing"`
	Inputs         []MandatoryInput `json:"inputs"`
	SummaryVisible bool             `json:"summary_visible"`
	Summary        string           `json:"summary,omitempty"`
}

const missingSummary = "The following required fields are not set in the template or not selected. Please fill them in:"

// Reconcile works out which mandatory fields still need manual input. A
// field is satisfied only when the source has a value for it and its option
// is selected. The result depends on nothing but the arguments.
func Reconcile(mandatory []string, sel Selection, doc models.Document) Reconciliation {
	r := Reconciliation{
		Missing: []string{},
		Inputs:  make([]MandatoryInput, 0, len(mandatory)),
	}
	for _, field := range mandatory {
		satisfied := HasValue(doc[field]) && sel[field]
		if !satisfied {
			r.Missing = append(r.Missing, field)
		}
		r.Inputs = append(r.Inputs, MandatoryInput{
			Field:    field,
			Label:    Label(field),
			Visible:  !satisfied,
			Required: !satisfied,
		})
	}
	if len(r.Missing) > 0 {
		r.SummaryVisible = true
		r.Summary = missingSummary
	}
	return r
}
