package services

import (
	"context"

	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/models"
	"event-template-platform/internal/repositories"
)

// EventRepository interface for event data operations
type EventRepository interface {
	Create(ctx context.Context, event *models.Event, linked repositories.LinkedRecords) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// TemplateRepository interface for event template data operations
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *models.EventTemplate) error
	GetByName(ctx context.Context, name string) (*models.EventTemplate, error)
}

// LinkedRepository interface for the records an event owns
type LinkedRepository interface {
	Count(ctx context.Context, doctype string, eventID int64) (int, error)
	GetTicketTypesByEvent(ctx context.Context, eventID int64) ([]*models.TicketType, error)
	GetAddOnsByEvent(ctx context.Context, eventID int64) ([]*models.AddOn, error)
	GetCustomFieldsByEvent(ctx context.Context, eventID int64) ([]*models.CustomField, error)
}

// TemplateServiceInterface defines the interface for template services.
// The acting user is taken from the context.
type TemplateServiceInterface interface {
	CreateFromTemplate(ctx context.Context, templateName string, options []string, additional map[string]string) (string, error)
	CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, options []string) (string, error)
	FetchDocument(ctx context.Context, doctype, name string) (models.Document, error)
	CountLinked(ctx context.Context, doctype, event string) (int, error)
}

var (
	_ EventRepository          = (*repositories.EventRepository)(nil)
	_ TemplateRepository       = (*repositories.TemplateRepository)(nil)
	_ LinkedRepository         = (*repositories.LinkedRepository)(nil)
	_ TemplateServiceInterface = (*TemplateService)(nil)

	// the dialogs can run in-process against the service
	_ eventtemplate.Gateway = (*TemplateService)(nil)
)
