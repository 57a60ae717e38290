package handlers

import (
	"net/http"

	"event-template-platform/internal/middleware"
	"event-template-platform/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DocumentHandler serves the read endpoints the dialogs load from.
type DocumentHandler struct {
	service services.TemplateServiceInterface
	logger  *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service services.TemplateServiceInterface, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, logger: logger.Named("documents")}
}

// GetResource handles GET /api/resource/{doctype}/{name}
func (h *DocumentHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	doctype := chi.URLParam(r, "doctype")
	name := chi.URLParam(r, "name")

	doc, err := h.service.FetchDocument(r.Context(), doctype, name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": doc})
}

// Count handles GET /api/count/{doctype}?event=...
func (h *DocumentHandler) Count(w http.ResponseWriter, r *http.Request) {
	doctype := chi.URLParam(r, "doctype")
	event := r.URL.Query().Get("event")
	if event == "" {
		middleware.WriteError(w, http.StatusBadRequest, "event is required")
		return
	}

	n, err := h.service.CountLinked(r.Context(), doctype, event)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": n})
}
