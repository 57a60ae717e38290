package eventtemplate

import (
	"context"
	"errors"

	"event-template-platform/internal/models"
)

// Gateway is the backend the dialogs read from and create documents through.
//
// FetchDocument returns an error wrapping models.ErrNotFound when the document
// does not exist. The create calls return a *models.ValidationError when the
// backend rejects the input; its message is shown to the user unchanged.
type Gateway interface {
	FetchDocument(ctx context.Context, doctype, name string) (models.Document, error)
	CountLinked(ctx context.Context, doctype, event string) (int, error)
	CreateFromTemplate(ctx context.Context, templateName string, selected []string, overrides map[string]string) (string, error)
	CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, selected []string) (string, error)
}

var (
	ErrUnknownOption  = errors.New("unknown option")
	ErrOptionDisabled = errors.New("option has no value to copy")
	ErrUnknownField   = errors.New("not a mandatory field")
	ErrInvalidState   = errors.New("action not allowed in the current dialog state")
	ErrDialogClosed   = errors.New("dialog is closed")
)
