package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"event-template-platform/internal/dialogstore"
	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/middleware"
	"event-template-platform/internal/models"

	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return models.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}

// statusOf maps an error onto the HTTP status the API reports it with.
func statusOf(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusExpectationFailed
	case models.IsNotFound(err), errors.Is(err, dialogstore.ErrDialogNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, dialogstore.ErrConflict), errors.Is(err, eventtemplate.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnknownDoctype),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, eventtemplate.ErrUnknownOption),
		errors.Is(err, eventtemplate.ErrUnknownField),
		errors.Is(err, eventtemplate.ErrOptionDisabled):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Validation messages are sent
// unchanged; internal errors are logged and hidden.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusOf(err)

	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteError(w, status, ve.Message, ve.Fields...)
	case status == http.StatusInternalServerError:
		logger.Error("request failed", zap.Error(err))
		middleware.WriteError(w, status, "Internal Server Error")
	default:
		middleware.WriteError(w, status, err.Error())
	}
}
