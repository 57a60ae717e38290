package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/models"
	"event-template-platform/internal/repositories"

	"go.uber.org/zap"
)

// TemplateService creates events from templates and templates from events
type TemplateService struct {
	events    EventRepository
	templates TemplateRepository
	linked    LinkedRepository
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewTemplateService creates a new template service. metrics may be nil.
func NewTemplateService(events EventRepository, templates TemplateRepository, linked LinkedRepository, metrics *Metrics, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		events:    events,
		templates: templates,
		linked:    linked,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFromTemplate creates an event titled "New Event from <template>"
// starting today. Non-empty additional fields are applied first, then every
// selected option is copied from the template, overwriting them. Linked
// records are created in the same transaction as the event. It returns the
// new event's name.
func (s *TemplateService) CreateFromTemplate(ctx context.Context, templateName string, options []string, additional map[string]string) (name string, err error) {
	defer s.track(OperationCreateFromTemplate, time.Now(), &err)

	user := models.UserFromContext(ctx)
	if !user.CanReadTemplates() {
		return "", fmt.Errorf("%w: you don't have permission to use templates", models.ErrForbidden)
	}
	if !user.CanCreateEvents() {
		return "", fmt.Errorf("%w: you don't have permission to create events", models.ErrForbidden)
	}

	tmpl, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return "", err
	}

	now := s.now()
	event := &models.Event{
		Title:     "New Event from " + tmpl.TemplateName,
		StartDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}

	if err := applyAdditional(event, additional); err != nil {
		return "", err
	}

	selected := selectionOf(options)
	event.CopyFrom(&tmpl.EventSettings, copyable(selected))

	if selected["payment_gateways"] {
		event.PaymentGateways = slices.Clone(tmpl.PaymentGateways)
	}
	if selected["sponsor_deck_attachments"] {
		event.SponsorDeckAttachments = slices.Clone(tmpl.SponsorDeckAttachments)
	}

	var linked repositories.LinkedRecords
	if selected["ticket_types"] {
		linked.TicketTypes = slices.Clone(tmpl.TicketTypes)
	}
	if selected["add_ons"] {
		linked.AddOns = slices.Clone(tmpl.AddOns)
	}
	if selected["custom_fields"] {
		linked.CustomFields = slices.Clone(tmpl.CustomFields)
	}

	if err := s.events.Create(ctx, event, linked); err != nil {
		return "", err
	}

	s.metrics.copied(models.DoctypeTicketType, len(linked.TicketTypes))
	s.metrics.copied(models.DoctypeAddOn, len(linked.AddOns))
	s.metrics.copied(models.DoctypeCustomField, len(linked.CustomFields))

	s.logger.Info("event created from template",
		zap.String("template", tmpl.TemplateName),
		zap.Int64("event_id", event.ID),
		zap.Strings("options", options),
		zap.Int("user_id", user.ID),
	)
	return event.Name(), nil
}

// CreateTemplateFromEvent saves the selected parts of an event, including
// its linked ticket types, add-ons and custom fields, as a new template.
func (s *TemplateService) CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, options []string) (name string, err error) {
	defer s.track(OperationCreateTemplateFromEvent, time.Now(), &err)

	user := models.UserFromContext(ctx)
	if !user.CanCreateTemplates() {
		return "", fmt.Errorf("%w: you don't have permission to create templates", models.ErrForbidden)
	}

	event, err := s.getEvent(ctx, eventName)
	if err != nil {
		return "", err
	}

	selected := selectionOf(options)
	tmpl := &models.EventTemplate{TemplateName: strings.TrimSpace(templateName)}
	tmpl.CopyFrom(&event.EventSettings, copyable(selected))

	if selected["payment_gateways"] {
		tmpl.PaymentGateways = slices.Clone(event.PaymentGateways)
	}
	if selected["sponsor_deck_attachments"] {
		tmpl.SponsorDeckAttachments = slices.Clone(event.SponsorDeckAttachments)
	}

	if selected["ticket_types"] {
		ticketTypes, err := s.linked.GetTicketTypesByEvent(ctx, event.ID)
		if err != nil {
			return "", err
		}
		for _, tt := range ticketTypes {
			tmpl.TicketTypes = append(tmpl.TicketTypes, tt.TicketTypeSpec)
		}
	}
	if selected["add_ons"] {
		addOns, err := s.linked.GetAddOnsByEvent(ctx, event.ID)
		if err != nil {
			return "", err
		}
		for _, a := range addOns {
			tmpl.AddOns = append(tmpl.AddOns, a.AddOnSpec)
		}
	}
	if selected["custom_fields"] {
		fields, err := s.linked.GetCustomFieldsByEvent(ctx, event.ID)
		if err != nil {
			return "", err
		}
		for _, cf := range fields {
			tmpl.CustomFields = append(tmpl.CustomFields, cf.CustomFieldSpec)
		}
	}

	if err := s.templates.Create(ctx, tmpl); err != nil {
		return "", err
	}

	s.metrics.copied(models.DoctypeTicketType, len(tmpl.TicketTypes))
	s.metrics.copied(models.DoctypeAddOn, len(tmpl.AddOns))
	s.metrics.copied(models.DoctypeCustomField, len(tmpl.CustomFields))

	s.logger.Info("template created from event",
		zap.Int64("event_id", event.ID),
		zap.String("template", tmpl.TemplateName),
		zap.Strings("options", options),
		zap.Int("user_id", user.ID),
	)
	return tmpl.TemplateName, nil
}

// FetchDocument returns an event or template in document form. Missing
// documents yield an error wrapping models.ErrNotFound.
func (s *TemplateService) FetchDocument(ctx context.Context, doctype, name string) (doc models.Document, err error) {
	defer s.track(OperationFetchDocument, time.Now(), &err)

	user := models.UserFromContext(ctx)
	switch doctype {
	case models.DoctypeTemplate:
		if !user.CanReadTemplates() {
			return nil, fmt.Errorf("%w: you don't have permission to use templates", models.ErrForbidden)
		}
		tmpl, err := s.templates.GetByName(ctx, name)
		if err != nil {
			return nil, notFound(err)
		}
		return tmpl.Document(), nil

	case models.DoctypeEvent:
		if !user.CanCreateEvents() {
			return nil, fmt.Errorf("%w: you don't have permission to read events", models.ErrForbidden)
		}
		event, err := s.getEvent(ctx, name)
		if err != nil {
			return nil, notFound(err)
		}
		return event.Document(), nil
	}
	return nil, fmt.Errorf("%q: %w", doctype, models.ErrUnknownDoctype)
}

// CountLinked returns the number of records of doctype linked to event.
func (s *TemplateService) CountLinked(ctx context.Context, doctype, event string) (n int, err error) {
	defer s.track(OperationCountLinked, time.Now(), &err)

	if !models.UserFromContext(ctx).CanCreateEvents() {
		return 0, fmt.Errorf("%w: you don't have permission to read events", models.ErrForbidden)
	}
	id, err := parseEventName(event)
	if err != nil {
		return 0, err
	}
	return s.linked.Count(ctx, doctype, id)
}

func (s *TemplateService) getEvent(ctx context.Context, name string) (*models.Event, error) {
	id, err := parseEventName(name)
	if err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

func (s *TemplateService) track(operation string, start time.Time, err *error) {
	status := statusOf(*err)
	s.metrics.observe(operation, status, time.Since(start).Seconds())
	if status == StatusError {
		s.logger.Error("template service call failed", zap.String("operation", operation), zap.Error(*err))
	}
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case models.IsValidationError(err):
		return StatusInvalid
	case models.IsNotFound(err):
		return StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return StatusDenied
	case errors.Is(err, models.ErrUnknownDoctype):
		return StatusInvalid
	}
	return StatusError
}

func parseEventName(name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("event %q: %w", name, models.ErrEventNotFound)
	}
	return id, nil
}

// notFound makes a specific not-found error also match models.ErrNotFound.
func notFound(err error) error {
	if models.IsNotFound(err) && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %w", err, models.ErrNotFound)
	}
	return err
}

// applyAdditional sets the user-supplied values; empty values are skipped.
func applyAdditional(event *models.Event, additional map[string]string) error {
	fields := make([]string, 0, len(additional))
	for field := range additional {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		value := strings.TrimSpace(additional[field])
		if value == "" {
			continue
		}
		switch field {
		case "title":
			event.Title = value
		case "start_date":
			d, err := time.Parse(time.DateOnly, value)
			if err != nil {
				return models.NewValidationError(fmt.Sprintf("Start Date %q is not a valid date", value), field)
			}
			event.StartDate = d
		default:
			if err := event.Set(field, value); err != nil {
				return models.NewValidationError(fmt.Sprintf("Cannot set %s to %q", eventtemplate.Label(field), value), field)
			}
		}
	}
	return nil
}

func selectionOf(options []string) map[string]bool {
	selected := make(map[string]bool, len(options))
	for _, o := range options {
		selected[o] = true
	}
	return selected
}

func copyable(selected map[string]bool) []string {
	var fields []string
	for _, f := range eventtemplate.CopyableFields() {
		if selected[f] {
			fields = append(fields, f)
		}
	}
	return fields
}
