package handlers

import (
	"net/http"

	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/services"

	"go.uber.org/zap"
)

// MethodHandler serves the two document-creating calls.
type MethodHandler struct {
	service services.TemplateServiceInterface
	logger  *zap.Logger
}

// NewMethodHandler creates a new method handler
func NewMethodHandler(service services.TemplateServiceInterface, logger *zap.Logger) *MethodHandler {
	return &MethodHandler{service: service, logger: logger.Named("methods")}
}

type createFromTemplateRequest struct {
	TemplateName     string            `json:"template_name"`
	Options          map[string]any    `json:"options"`
	AdditionalFields map[string]string `json:"additional_fields"`
}

type createTemplateFromEventRequest struct {
	EventName    string         `json:"event_name"`
	TemplateName string         `json:"template_name"`
	Options      map[string]any `json:"options"`
}

// CreateFromTemplate handles POST /api/method/create_from_template
func (h *MethodHandler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req createFromTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	name, err := h.service.CreateFromTemplate(r.Context(), req.TemplateName, eventtemplate.SelectedOptions(req.Options), req.AdditionalFields)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": name})
}

// CreateTemplateFromEvent handles POST /api/method/create_template_from_event
func (h *MethodHandler) CreateTemplateFromEvent(w http.ResponseWriter, r *http.Request) {
	var req createTemplateFromEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	name, err := h.service.CreateTemplateFromEvent(r.Context(), req.EventName, req.TemplateName, eventtemplate.SelectedOptions(req.Options))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": name})
}
