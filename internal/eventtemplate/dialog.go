package eventtemplate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"event-template-platform/internal/models"
)

// State is the lifecycle position of a dialog
type State string

const (
	StateIdle       State = "idle"
	StateLoaded     State = "loaded"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// editable reports whether options and inputs may still change.
func (s State) editable() bool {
	return s == StateLoaded || s == StateFailed
}

// Kind tells the two dialogs apart
type Kind string

const (
	KindCreateFromTemplate Kind = "create_from_template"
	KindSaveAsTemplate     Kind = "save_as_template"
)

// View is everything a client needs to draw a dialog. It is computed from
// the dialog state on every call and never stored.
type View struct {
	Kind           Kind              `json:"kind"`
	Title          string            `json:"title"`
	State          State             `json:"state"`
	Template       string            `json:"template,omitempty"`
	Event          string            `json:"event,omitempty"`
	TemplateName   string            `json:"template_name,omitempty"`
	Sections       []Section         `json:"sections"`
	Mandatory      []MandatoryInput  `json:"mandatory,omitempty"`
	Overrides      map[string]string `json:"overrides,omitempty"`
	SummaryVisible bool              `json:"summary_visible"`
	Summary        string            `json:"summary,omitempty"`
	SubmitLabel    string            `json:"submit_label"`
	BusyMessage    string            `json:"busy_message"`
	Busy           bool              `json:"busy"`
	Error          string            `json:"error,omitempty"`
	Result         string            `json:"result,omitempty"`
	SuccessMessage string            `json:"success_message,omitempty"`
	Route          string            `json:"route,omitempty"`
}

// EventRoute is the desk route of an event document.
func EventRoute(name string) string {
	return "/app/buzz-event/" + url.PathEscape(name)
}

// TemplateRoute is the desk route of a template document.
func TemplateRoute(name string) string {
	return "/app/event-template/" + url.PathEscape(name)
}

// CreateDialog drives "create event from template". It is safe for
// concurrent use; gateway calls are made without holding the lock.
type CreateDialog struct {
	mu sync.Mutex
	gw Gateway

	state     State
	template  string
	source    models.Document
	options   OptionSet
	overrides map[string]string
	result    string
	lastErr   string
	closed    bool

	submitID      string
	submitStarted time.Time

	// seq increments on every template choice so a slow fetch for an
	// earlier choice cannot overwrite a later one.
	seq uint64
}

// NewCreateDialog returns an idle dialog.
func NewCreateDialog(gw Gateway) *CreateDialog {
	return &CreateDialog{
		gw:        gw,
		state:     StateIdle,
		overrides: make(map[string]string),
	}
}

// CreateSnapshot is the serialisable state of a CreateDialog.
type CreateSnapshot struct {
	State     State             `json:"state"`
	Template  string            `json:"template,omitempty"`
	Source    models.Document   `json:"source,omitempty"`
	Options   OptionSet         `json:"options"`
	Overrides map[string]string `json:"overrides,omitempty"`
	Result    string            `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`

	SubmitID      string    `json:"submit_id,omitempty"`
	SubmitStarted time.Time `json:"submit_started,omitzero"`
}

// RestoreCreateDialog rebuilds a dialog from a snapshot.
func RestoreCreateDialog(gw Gateway, snap CreateSnapshot) *CreateDialog {
	d := NewCreateDialog(gw)
	d.state = restoredState(snap.State, snap.SubmitStarted, StateIdle)
	d.submitID = snap.SubmitID
	d.submitStarted = snap.SubmitStarted
	d.template = snap.Template
	d.source = snap.Source
	d.options = snap.Options.Clone()
	maps.Copy(d.overrides, snap.Overrides)
	d.result = snap.Result
	d.lastErr = snap.Error
	return d
}

// Snapshot returns the dialog state for persistence.
func (d *CreateDialog) Snapshot() CreateSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return CreateSnapshot{
		State:     d.state,
		Template:  d.template,
		Source:    maps.Clone(d.source),
		Options:   d.options.Clone(),
		Overrides: maps.Clone(d.overrides),
		Result:    d.result,
		Error:     d.lastErr,

		SubmitID:      d.submitID,
		SubmitStarted: d.submitStarted,
	}
}

// State returns the current state.
func (d *CreateDialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close discards the dialog. Results of calls still in flight are ignored.
func (d *CreateDialog) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// ChooseTemplate fetches the named template and renders its options. An
// empty name clears the dialog. If the fetch fails the dialog is left idle
// with nothing rendered.
func (d *CreateDialog) ChooseTemplate(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDialogClosed
	}
	if d.state == StateSubmitting || d.state == StateDone {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	d.seq++
	seq := d.seq
	if name == "" {
		d.clear()
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	doc, err := d.gw.FetchDocument(ctx, models.DoctypeTemplate, name)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDialogClosed
	}
	if seq != d.seq {
		// superseded by a later choice
		return nil
	}
	if err != nil {
		d.clear()
		d.lastErr = errorMessage(err)
		return fmt.Errorf("fetch template %s: %w", name, err)
	}

	d.template = name
	d.source = doc
	d.options = TemplateOptions(doc)
	d.state = StateLoaded
	d.lastErr = ""
	return nil
}

func (d *CreateDialog) clear() {
	d.state = StateIdle
	d.template = ""
	d.source = nil
	d.options = OptionSet{}
	d.lastErr = ""
}

// Toggle checks or unchecks one option.
func (d *CreateDialog) Toggle(name string, selected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	return d.options.Toggle(name, selected)
}

// SelectAll checks every option that has a value.
func (d *CreateDialog) SelectAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.options.SelectAll()
	return nil
}

// UnselectAll unchecks every option.
func (d *CreateDialog) UnselectAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.options.UnselectAll()
	return nil
}

// SetOverride records the user's value for a mandatory field. The value is
// only sent if the field is still missing at submit time.
func (d *CreateDialog) SetOverride(field, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDialogClosed
	}
	if d.state == StateSubmitting || d.state == StateDone {
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	if !isMandatory(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	d.overrides[field] = value
	return nil
}

func (d *CreateDialog) checkEditable() error {
	if d.closed {
		return ErrDialogClosed
	}
	if !d.state.editable() {
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	return nil
}

// Reconciliation returns the current mandatory-field reconciliation.
func (d *CreateDialog) Reconciliation() Reconciliation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconcile()
}

func (d *CreateDialog) reconcile() Reconciliation {
	return Reconcile(mandatoryFields, d.options.Selection(), d.source)
}

// Submit creates the event. Every missing mandatory field must have an
// override; otherwise a validation error is returned and nothing is sent.
// On failure the dialog keeps all its values so the user can retry.
func (d *CreateDialog) Submit(ctx context.Context) (string, error) {
	sub, err := d.Prepare()
	if err != nil {
		return "", err
	}
	name, err := sub.Run(ctx)
	if cerr := d.Complete(sub, name, err); errors.Is(cerr, ErrDialogClosed) {
		return name, err
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// Prepare validates the dialog and moves it to Submitting. The returned
// submission carries the template, the selection and the overrides for the
// missing mandatory fields.
func (d *CreateDialog) Prepare() (*Submission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return nil, err
	}

	rec := d.reconcile()
	overrides := make(map[string]string)
	var labels, unfilled []string
	for _, field := range rec.Missing {
		v := strings.TrimSpace(d.overrides[field])
		if v == "" {
			labels = append(labels, Label(field))
			unfilled = append(unfilled, field)
			continue
		}
		overrides[field] = v
	}
	if len(unfilled) > 0 {
		return nil, models.MissingFieldsError(labels, unfilled)
	}

	selected := d.options.Selected()
	template := d.template
	gw := d.gw
	sub := newSubmission(func(ctx context.Context) (string, error) {
		return gw.CreateFromTemplate(ctx, template, selected, overrides)
	})
	d.state = StateSubmitting
	d.lastErr = ""
	d.submitID = sub.ID
	d.submitStarted = sub.Started
	return sub, nil
}

// Complete records the outcome of sub. It fails with ErrStaleSubmission when
// the dialog has been submitted again since sub was prepared.
func (d *CreateDialog) Complete(sub *Submission, name string, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDialogClosed
	}
	if d.submitID != sub.ID {
		return ErrStaleSubmission
	}
	if err != nil {
		d.state = StateFailed
		d.lastErr = errorMessage(err)
		return nil
	}
	d.state = StateDone
	d.result = name
	return nil
}

// View renders the dialog.
func (d *CreateDialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := View{
		Kind:        KindCreateFromTemplate,
		Title:       "Create Event from Template",
		State:       d.state,
		Template:    d.template,
		Sections:    d.options.Clone().Sections,
		Overrides:   maps.Clone(d.overrides),
		SubmitLabel: "Create Event",
		BusyMessage: "Creating Event...",
		Busy:        d.state == StateSubmitting,
		Error:       d.lastErr,
	}
	if v.Sections == nil {
		v.Sections = []Section{}
	}

	if d.state == StateIdle {
		for _, field := range mandatoryFields {
			v.Mandatory = append(v.Mandatory, MandatoryInput{Field: field, Label: Label(field)})
		}
		return v
	}

	rec := d.reconcile()
	v.Mandatory = rec.Inputs
	v.SummaryVisible = rec.SummaryVisible
	v.Summary = rec.Summary

	if d.state == StateDone {
		v.Result = d.result
		v.SuccessMessage = "Event created successfully"
		v.Route = EventRoute(d.result)
	}
	return v
}

// errorMessage is the text shown for err. Validation messages are shown
// exactly as the backend wrote them.
func errorMessage(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

func isMandatory(field string) bool {
	return slices.Contains(mandatoryFields, field)
}
