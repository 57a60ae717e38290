package eventtemplate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"event-template-platform/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultCountTimeout bounds each linked-record count lookup.
const DefaultCountTimeout = 10 * time.Second

// SaveDialog drives "save event as template". Linked-record counts are
// looked up independently and merged into the options by name.
type SaveDialog struct {
	mu sync.Mutex
	gw Gateway

	// CountTimeout bounds each count lookup; zero means DefaultCountTimeout.
	CountTimeout time.Duration

	state        State
	event        string
	source       models.Document
	templateName string
	options      OptionSet
	result       string
	lastErr      string
	closed       bool
	onResolve    func(Option)

	submitID      string
	submitStarted time.Time
}

// NewSaveDialog renders the options for event. Ticket types, add-ons and
// custom fields show as loading until LoadCounts resolves them.
func NewSaveDialog(gw Gateway, event models.Document) *SaveDialog {
	return &SaveDialog{
		gw:           gw,
		state:        StateLoaded,
		event:        event.Name(),
		source:       event,
		templateName: DefaultTemplateName(event),
		options:      EventOptions(event),
	}
}

// OpenSaveDialog fetches the event and renders a dialog for it. It does not
// wait for the linked-record counts; call LoadCounts for that.
func OpenSaveDialog(ctx context.Context, gw Gateway, eventName string) (*SaveDialog, error) {
	doc, err := gw.FetchDocument(ctx, models.DoctypeEvent, eventName)
	if err != nil {
		return nil, fmt.Errorf("fetch event %s: %w", eventName, err)
	}
	if doc.Name() == "" {
		doc["name"] = eventName
	}
	return NewSaveDialog(gw, doc), nil
}

// DefaultTemplateName is the name suggested for a template made from event.
func DefaultTemplateName(event models.Document) string {
	title := strings.TrimSpace(event.String("title"))
	if title == "" {
		return ""
	}
	return title + " Template"
}

// OnResolve registers fn to be called with each option as its count resolves.
func (d *SaveDialog) OnResolve(fn func(Option)) {
	d.mu.Lock()
	d.onResolve = fn
	d.mu.Unlock()
}

// LoadCounts looks up every pending linked-record count concurrently and
// returns once all of them have resolved. A failed or timed out lookup still
// resolves its option, as zero, so the dialog never stays loading; the first
// such failure is returned for the caller to report.
func (d *SaveDialog) LoadCounts(ctx context.Context) error {
	d.mu.Lock()
	pending := d.options.Pending()
	event := d.event
	timeout := d.CountTimeout
	d.mu.Unlock()
	if timeout <= 0 {
		timeout = DefaultCountTimeout
	}

	doctypes := make(map[string]string)
	for _, r := range related {
		doctypes[r.Name] = r.Doctype
	}

	var g errgroup.Group
	for _, name := range pending {
		doctype := doctypes[name]
		if doctype == "" {
			continue
		}
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			n, err := d.gw.CountLinked(lookupCtx, doctype, event)
			if err != nil {
				d.resolve(name, 0)
				return fmt.Errorf("count %s: %w", doctype, err)
			}
			d.resolve(name, n)
			return nil
		})
	}
	return g.Wait()
}

func (d *SaveDialog) resolve(name string, count int) {
	d.mu.Lock()
	if d.closed || !d.options.Resolve(name, count) {
		d.mu.Unlock()
		return
	}
	opt, _ := d.options.Option(name)
	fn := d.onResolve
	d.mu.Unlock()

	if fn != nil {
		fn(opt)
	}
}

// SaveSnapshot is the serialisable state of a SaveDialog.
type SaveSnapshot struct {
	State        State           `json:"state"`
	Event        string          `json:"event"`
	Source       models.Document `json:"source,omitempty"`
	TemplateName string          `json:"template_name"`
	Options      OptionSet       `json:"options"`
	Result       string          `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`

	SubmitID      string    `json:"submit_id,omitempty"`
	SubmitStarted time.Time `json:"submit_started,omitzero"`
}

// RestoreSaveDialog rebuilds a dialog from a snapshot.
func RestoreSaveDialog(gw Gateway, snap SaveSnapshot) *SaveDialog {
	return &SaveDialog{
		gw:            gw,
		state:         restoredState(snap.State, snap.SubmitStarted, StateLoaded),
		event:         snap.Event,
		source:        snap.Source,
		templateName:  snap.TemplateName,
		options:       snap.Options.Clone(),
		result:        snap.Result,
		lastErr:       snap.Error,
		submitID:      snap.SubmitID,
		submitStarted: snap.SubmitStarted,
	}
}

// Snapshot returns the dialog state for persistence.
func (d *SaveDialog) Snapshot() SaveSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SaveSnapshot{
		State:        d.state,
		Event:        d.event,
		Source:       maps.Clone(d.source),
		TemplateName: d.templateName,
		Options:      d.options.Clone(),
		Result:       d.result,
		Error:        d.lastErr,

		SubmitID:      d.submitID,
		SubmitStarted: d.submitStarted,
	}
}

// State returns the current state.
func (d *SaveDialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close discards the dialog. Counts and submits still in flight are ignored.
func (d *SaveDialog) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *SaveDialog) checkEditable() error {
	if d.closed {
		return ErrDialogClosed
	}
	if !d.state.editable() {
		return fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	return nil
}

// Toggle checks or unchecks one option.
func (d *SaveDialog) Toggle(name string, selected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	return d.options.Toggle(name, selected)
}

// SelectAll checks every option that has a value. Options still loading are
// left alone.
func (d *SaveDialog) SelectAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.options.SelectAll()
	return nil
}

// UnselectAll unchecks every option.
func (d *SaveDialog) UnselectAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.options.UnselectAll()
	return nil
}

// SetTemplateName sets the name of the template to create.
func (d *SaveDialog) SetTemplateName(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.templateName = name
	return nil
}

// Submit creates the template from the checked options.
func (d *SaveDialog) Submit(ctx context.Context) (string, error) {
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

// Prepare checks the template name and moves the dialog to Submitting.
// Options whose counts are still loading are not part of the selection.
func (d *SaveDialog) Prepare() (*Submission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkEditable(); err != nil {
		return nil, err
	}
	templateName := strings.TrimSpace(d.templateName)
	if templateName == "" {
		return nil, models.MissingFieldsError([]string{"Template Name"}, []string{"template_name"})
	}

	selected := d.options.Selected()
	event := d.event
	gw := d.gw
	sub := newSubmission(func(ctx context.Context) (string, error) {
		return gw.CreateTemplateFromEvent(ctx, event, templateName, selected)
	})
	d.state = StateSubmitting
	d.lastErr = ""
	d.submitID = sub.ID
	d.submitStarted = sub.Started
	return sub, nil
}

// Complete records the outcome of sub. It fails with ErrStaleSubmission when
// the dialog has been submitted again since sub was prepared.
func (d *SaveDialog) Complete(sub *Submission, name string, err error) error {
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
func (d *SaveDialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := View{
		Kind:         KindSaveAsTemplate,
		Title:        "Save Event as Template",
		State:        d.state,
		Event:        d.event,
		TemplateName: d.templateName,
		Sections:     d.options.Clone().Sections,
		SubmitLabel:  "Save Template",
		BusyMessage:  "Creating Template...",
		Busy:         d.state == StateSubmitting,
		Error:        d.lastErr,
	}
	if v.Sections == nil {
		v.Sections = []Section{}
	}
	if d.state == StateDone {
		v.Result = d.result
		v.SuccessMessage = fmt.Sprintf("Template %s created successfully", d.result)
		v.Route = TemplateRoute(d.result)
	}
	return v
}
