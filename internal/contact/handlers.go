package contact

import (
	"errors"
	"net/http"

	"github.com/noah-isme/mystic-pricing/internal/common"
)

// Handler exposes the contact form over HTTP.
type Handler struct {
	Svc *Service
}

// Submit handles POST /api/v1/contact.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "contact service not configured", nil)
		return
	}
	var msg Message
	if err := common.DecodeJSON(r, &msg); err != nil {
		common.WriteError(w, err)
		return
	}
	receipt, err := h.Svc.Submit(r.Context(), msg)
	var fieldErrs common.FieldErrors
	switch {
	case err == nil:
		common.JSON(w, http.StatusCreated, map[string]any{"data": receipt})
	case errors.As(err, &fieldErrs):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "contact form is invalid", fieldErrs)
	case errors.Is(err, ErrDelivery):
		common.JSONError(w, http.StatusBadGateway, "DELIVERY_FAILED", "message could not be sent, try again later", nil)
	default:
		common.WriteError(w, err)
	}
}
