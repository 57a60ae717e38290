package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"event-template-platform/internal/dialogstore"
	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DialogStore persists open dialogs between requests.
type DialogStore interface {
	Create(ctx context.Context, rec *dialogstore.Record) error
	Load(ctx context.Context, id string) (*dialogstore.Record, error)
	Update(ctx context.Context, rec *dialogstore.Record) error
	Delete(ctx context.Context, id string) error
}

// updateRetries bounds how often a change is re-applied after a concurrent
// update of the same dialog.
const updateRetries = 5

// dialog is what both dialog kinds have in common.
type dialog interface {
	Toggle(name string, selected bool) error
	SelectAll() error
	UnselectAll() error
	Prepare() (*eventtemplate.Submission, error)
	Complete(sub *eventtemplate.Submission, result string, err error) error
	View() eventtemplate.View
}

// DialogHandler hosts the create-from-template and save-as-template dialogs.
// Each request restores the dialog from the store, applies one action and
// writes it back.
type DialogHandler struct {
	store        DialogStore
	gw           eventtemplate.Gateway
	countTimeout time.Duration
	logger       *zap.Logger

	// counts tracks background count lookups
	counts sync.WaitGroup
}

// NewDialogHandler creates a new dialog handler. countTimeout bounds each
// linked-record count lookup; zero uses the dialog default.
func NewDialogHandler(store DialogStore, gw eventtemplate.Gateway, countTimeout time.Duration, logger *zap.Logger) *DialogHandler {
	return &DialogHandler{
		store:        store,
		gw:           gw,
		countTimeout: countTimeout,
		logger:       logger.Named("dialogs"),
	}
}

// Wait blocks until background count lookups have finished.
func (h *DialogHandler) Wait() {
	h.counts.Wait()
}

type dialogResponse struct {
	ID string `json:"id"`
	eventtemplate.View
}

type dialogErrorResponse struct {
	Error  string          `json:"error"`
	Fields []string        `json:"fields,omitempty"`
	Dialog *dialogResponse `json:"dialog,omitempty"`
}

type createDialogRequest struct {
	Template string `json:"template"`
}

type saveDialogRequest struct {
	Event string `json:"event"`
}

type templateRequest struct {
	Template string `json:"template"`
}

type optionRequest struct {
	Selected bool `json:"selected"`
}

type overrideRequest struct {
	Value string `json:"value"`
}

type templateNameRequest struct {
	TemplateName string `json:"template_name"`
}

// OpenCreate handles POST /api/dialogs/create-from-template. An optional
// template in the body is chosen straight away.
func (h *DialogHandler) OpenCreate(w http.ResponseWriter, r *http.Request) {
	var req createDialogRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	d := eventtemplate.NewCreateDialog(h.gw)
	var chooseErr error
	if req.Template != "" {
		chooseErr = d.ChooseTemplate(r.Context(), req.Template)
	}
	if isAuthError(chooseErr) {
		respondError(w, h.logger, chooseErr)
		return
	}

	snap := d.Snapshot()
	rec := &dialogstore.Record{
		Kind:   eventtemplate.KindCreateFromTemplate,
		UserID: currentUserID(r),
		Create: &snap,
	}
	if err := h.store.Create(r.Context(), rec); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Debug("dialog opened", zap.String("dialog", rec.ID), zap.String("kind", string(rec.Kind)))
	respondJSON(w, http.StatusCreated, dialogResponse{ID: rec.ID, View: d.View()})
}

// OpenSave handles POST /api/dialogs/save-as-template. The dialog is
// returned with its linked-record counts still loading; they are looked up
// in the background and merged into the stored dialog as they arrive.
func (h *DialogHandler) OpenSave(w http.ResponseWriter, r *http.Request) {
	var req saveDialogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if req.Event == "" {
		respondError(w, h.logger, models.MissingFieldsError([]string{"Event"}, []string{"event"}))
		return
	}

	d, err := eventtemplate.OpenSaveDialog(r.Context(), h.gw, req.Event)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	d.CountTimeout = h.countTimeout

	snap := d.Snapshot()
	rec := &dialogstore.Record{
		Kind:   eventtemplate.KindSaveAsTemplate,
		UserID: currentUserID(r),
		Save:   &snap,
	}
	if err := h.store.Create(r.Context(), rec); err != nil {
		respondError(w, h.logger, err)
		return
	}

	// the lookups outlive the request but keep its user
	ctx := context.WithoutCancel(r.Context())
	id := rec.ID
	d.OnResolve(func(o eventtemplate.Option) {
		h.applyCount(ctx, id, o)
	})
	h.counts.Add(1)
	go func() {
		defer h.counts.Done()
		if err := d.LoadCounts(ctx); err != nil {
			h.logger.Warn("count lookup failed", zap.String("dialog", id), zap.Error(err))
		}
	}()

	respondJSON(w, http.StatusCreated, dialogResponse{ID: rec.ID, View: d.View()})
}

// applyCount merges one resolved count into the stored dialog. Counts for a
// dialog that has been closed are dropped.
func (h *DialogHandler) applyCount(ctx context.Context, id string, o eventtemplate.Option) {
	if o.Count == nil {
		return
	}
	for attempt := 0; attempt < updateRetries; attempt++ {
		rec, err := h.store.Load(ctx, id)
		if errors.Is(err, dialogstore.ErrDialogNotFound) {
			return
		}
		if err != nil {
			h.logger.Error("failed to load dialog for count", zap.String("dialog", id), zap.Error(err))
			return
		}
		if rec.Save == nil || !rec.Save.Options.Resolve(o.Name, *o.Count) {
			return
		}

		err = h.store.Update(ctx, rec)
		switch {
		case err == nil, errors.Is(err, dialogstore.ErrDialogNotFound):
			return
		case errors.Is(err, dialogstore.ErrConflict):
			continue
		default:
			h.logger.Error("failed to store count", zap.String("dialog", id), zap.String("option", o.Name), zap.Error(err))
			return
		}
	}
	h.logger.Warn("gave up storing count", zap.String("dialog", id), zap.String("option", o.Name))
}

// Get handles GET /api/dialogs/{id}
func (h *DialogHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, d, err := h.load(r.Context(), r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dialogResponse{ID: rec.ID, View: d.View()})
}

// ChooseTemplate handles PUT /api/dialogs/{id}/template
func (h *DialogHandler) ChooseTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.act(w, r, func(d dialog) error {
		cd, ok := d.(*eventtemplate.CreateDialog)
		if !ok {
			return wrongKind()
		}
		return cd.ChooseTemplate(r.Context(), req.Template)
	})
}

// SetOption handles PUT /api/dialogs/{id}/options/{option}
func (h *DialogHandler) SetOption(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	option := chi.URLParam(r, "option")
	h.act(w, r, func(d dialog) error {
		return d.Toggle(option, req.Selected)
	})
}

// SelectAll handles POST /api/dialogs/{id}/select-all
func (h *DialogHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(d dialog) error {
		return d.SelectAll()
	})
}

// UnselectAll handles POST /api/dialogs/{id}/unselect-all
func (h *DialogHandler) UnselectAll(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(d dialog) error {
		return d.UnselectAll()
	})
}

// SetOverride handles PUT /api/dialogs/{id}/overrides/{field}
func (h *DialogHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	field := chi.URLParam(r, "field")
	h.act(w, r, func(d dialog) error {
		cd, ok := d.(*eventtemplate.CreateDialog)
		if !ok {
			return wrongKind()
		}
		return cd.SetOverride(field, req.Value)
	})
}

// SetTemplateName handles PUT /api/dialogs/{id}/template-name
func (h *DialogHandler) SetTemplateName(w http.ResponseWriter, r *http.Request) {
	var req templateNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.act(w, r, func(d dialog) error {
		sd, ok := d.(*eventtemplate.SaveDialog)
		if !ok {
			return wrongKind()
		}
		return sd.SetTemplateName(req.TemplateName)
	})
}

// Submit handles POST /api/dialogs/{id}/submit. The dialog is stored as
// submitting before the gateway is called, so a second submit of the same
// dialog is rejected while the first is in flight. The outcome is stored
// unless the dialog was closed in the meantime.
func (h *DialogHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub *eventtemplate.Submission
	rec, d, prepErr, err := h.mutate(r.Context(), r, func(d dialog) error {
		var err error
		sub, err = d.Prepare()
		return err
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if prepErr != nil {
		h.respondDialogError(w, rec.ID, d, prepErr)
		return
	}

	result, submitErr := sub.Run(r.Context())
	// answers for the dialog when the outcome cannot be stored
	_ = d.Complete(sub, result, submitErr)

	// the outcome is stored even if the client has gone away
	ctx := context.WithoutCancel(r.Context())
	_, stored, completeErr, err := h.mutate(ctx, r, func(d dialog) error {
		return d.Complete(sub, result, submitErr)
	})
	switch {
	case errors.Is(err, dialogstore.ErrDialogNotFound):
		h.logger.Debug("dialog closed during submit", zap.String("dialog", rec.ID))
	case err != nil:
		h.logger.Error("failed to store submit result", zap.String("dialog", rec.ID), zap.Error(err))
	case completeErr != nil:
		h.logger.Warn("submit result discarded", zap.String("dialog", rec.ID), zap.Error(completeErr))
	default:
		d = stored
	}

	if submitErr != nil {
		h.respondDialogError(w, rec.ID, d, submitErr)
		return
	}
	h.logger.Info("dialog submitted",
		zap.String("dialog", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("result", result),
	)
	respondJSON(w, http.StatusOK, dialogResponse{ID: rec.ID, View: d.View()})
}

// Close handles DELETE /api/dialogs/{id}. Closing an unknown dialog succeeds.
func (h *DialogHandler) Close(w http.ResponseWriter, r *http.Request) {
	rec, _, err := h.load(r.Context(), r)
	if errors.Is(err, dialogstore.ErrDialogNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.store.Delete(r.Context(), rec.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// act applies fn to the dialog named in the URL and responds with the
// result.
func (h *DialogHandler) act(w http.ResponseWriter, r *http.Request, fn func(dialog) error) {
	rec, d, actErr, err := h.mutate(r.Context(), r, fn)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if actErr != nil {
		h.respondDialogError(w, rec.ID, d, actErr)
		return
	}
	respondJSON(w, http.StatusOK, dialogResponse{ID: rec.ID, View: d.View()})
}

// mutate restores the dialog, applies fn and stores the result, starting
// over when another request stored the dialog first. The dialog is stored
// even when fn fails so that errors shown in it survive; fn's error is
// returned as actErr.
func (h *DialogHandler) mutate(ctx context.Context, r *http.Request, fn func(dialog) error) (rec *dialogstore.Record, d dialog, actErr, err error) {
	for attempt := 1; ; attempt++ {
		rec, d, err = h.load(ctx, r)
		if err != nil {
			return nil, nil, nil, err
		}
		actErr = fn(d)
		snapshotInto(rec, d)
		err = h.store.Update(ctx, rec)
		if !errors.Is(err, dialogstore.ErrConflict) || attempt == updateRetries {
			return rec, d, actErr, err
		}
		h.logger.Debug("dialog changed concurrently, retrying", zap.String("dialog", rec.ID), zap.Int("attempt", attempt))
	}
}

// load fetches the dialog named in the URL. Dialogs of other users are
// reported as not found.
func (h *DialogHandler) load(ctx context.Context, r *http.Request) (*dialogstore.Record, dialog, error) {
	rec, err := h.store.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, err
	}
	user := models.UserFromContext(r.Context())
	if user == nil || (rec.UserID != user.ID && !user.IsAdmin()) {
		return nil, nil, dialogstore.ErrDialogNotFound
	}

	switch {
	case rec.Kind == eventtemplate.KindCreateFromTemplate && rec.Create != nil:
		return rec, eventtemplate.RestoreCreateDialog(h.gw, *rec.Create), nil
	case rec.Kind == eventtemplate.KindSaveAsTemplate && rec.Save != nil:
		return rec, eventtemplate.RestoreSaveDialog(h.gw, *rec.Save), nil
	}
	return nil, nil, fmt.Errorf("stored dialog %s has no state", rec.ID)
}

func (h *DialogHandler) respondDialogError(w http.ResponseWriter, id string, d dialog, err error) {
	status := statusOf(err)
	body := dialogErrorResponse{
		Error:  err.Error(),
		Dialog: &dialogResponse{ID: id, View: d.View()},
	}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		body.Error = ve.Message
		body.Fields = ve.Fields
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("dialog action failed", zap.String("dialog", id), zap.Error(err))
		body.Error = "Internal Server Error"
	}
	respondJSON(w, status, body)
}

func snapshotInto(rec *dialogstore.Record, d dialog) {
	switch d := d.(type) {
	case *eventtemplate.CreateDialog:
		snap := d.Snapshot()
		rec.Create = &snap
	case *eventtemplate.SaveDialog:
		snap := d.Snapshot()
		rec.Save = &snap
	}
}

func wrongKind() error {
	return models.NewValidationError("This action is not available in this dialog")
}

func isAuthError(err error) bool {
	return errors.Is(err, models.ErrForbidden) || errors.Is(err, models.ErrUnauthorized)
}

func currentUserID(r *http.Request) int {
	if user := models.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return 0
}
