package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/resilience"
)

// Handler exposes the services page over HTTP.
type Handler struct {
	Svc *Service
}

// Categories handles GET /api/v1/services/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Categories})
}

// List handles GET /api/v1/services with an optional category filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Menu == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	items := h.Svc.Menu.List(r.URL.Query().Get("category"))
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Detail handles GET /api/v1/services/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Menu == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	o, err := h.Svc.Menu.Offering(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// Slots handles GET /api/v1/services/{id}/slots?date=YYYY-MM-DD.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	date := r.URL.Query().Get("date")
	slots, err := h.Svc.Slots(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"serviceId": chi.URLParam(r, "id"),
		"date":      date,
		"slots":     slots,
	}})
}

// Book handles POST /api/v1/bookings.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "booking service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.Svc.Book(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{
		"reference":       b.Reference,
		"status":          b.Status,
		"service":         b.Service,
		"start":           b.Start,
		"end":             b.End,
		"summary":         b.Summary.Rounded(),
		"totalMinorUnits": b.TotalMinorUnits,
		"currency":        b.Currency,
		"payment":         b.Payment,
		"bookedAt":        b.BookedAt,
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": data})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var fieldErrs common.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "booking details are invalid", fieldErrs)
	case errors.Is(err, ErrServiceNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "service not found", nil)
	case errors.Is(err, ErrInvalidSlot):
		common.JSONError(w, http.StatusBadRequest, "INVALID_SLOT", err.Error(), nil)
	case errors.Is(err, ErrSlotUnavailable):
		common.JSONError(w, http.StatusConflict, "SLOT_UNAVAILABLE", "this time is no longer available", nil)
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", "payment provider unavailable, try again later", nil)
	case errors.Is(err, payment.ErrDeclined):
		common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", "payment was declined", nil)
	case errors.Is(err, ErrPayment):
		common.JSONError(w, http.StatusBadGateway, "PAYMENT_FAILED", "payment could not be started", nil)
	default:
		common.WriteError(w, err)
	}
}
