package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/mystic-pricing/internal/cart"
	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/lock"
	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/resilience"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc *Service
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Place(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{
		"orderNumber":     out.OrderNumber,
		"status":          out.Status,
		"items":           out.Items,
		"summary":         out.Summary.Rounded(),
		"totalMinorUnits": out.TotalMinorUnits,
		"currency":        out.Currency,
		"payment":         out.Payment,
		"placedAt":        out.PlacedAt,
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": data})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var fieldErrs common.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "customer info is invalid", fieldErrs)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "checkout already in progress for this cart", nil)
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
