package cart

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mystic-pricing/internal/catalog"
	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

type itemView struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name,omitempty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Quantity  int           `json:"quantity"`
	LineTotal pricing.Money `json:"lineTotal"`
}

type promoView struct {
	Code           string            `json:"code"`
	Kind           pricing.PromoKind `json:"kind"`
	Value          pricing.Money     `json:"value"`
	DiscountAmount pricing.Money     `json:"discountAmount"`
}

// Create opens a new cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusCreated, c)
}

// Get returns cart contents and the live pricing summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// AddItem adds or increments a cart line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		Quantity  *int   `json:"quantity"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.ProductID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId is required", nil)
		return
	}
	qty := 1
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.ProductID, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// UpdateItem sets the quantity of a line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// ApplyPromo applies a promo code to the cart.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.ApplyPromo(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// RemovePromo clears the applied promo.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.RemovePromo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// Quote prices an ad-hoc list of items without a cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Items     []QuoteLine `json:"items"`
		PromoCode string      `json:"promoCode"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Quote(payload.Items, payload.PromoCode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data := map[string]any{
		"items":           result.Items,
		"summary":         result.Summary.Rounded(),
		"totalMinorUnits": result.Summary.TotalMinorUnits(),
		"currency":        h.Currency,
	}
	if result.PromoError != "" {
		data["promoError"] = result.PromoError
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

func (h *Handler) render(w http.ResponseWriter, status int, c Cart) {
	summary, err := h.Svc.Summary(c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]itemView, 0, len(c.Items))
	for _, it := range c.Items {
		view := itemView{ProductID: it.ProductID, UnitPrice: it.UnitPrice, Quantity: it.Quantity, LineTotal: it.LineTotal()}
		if h.Svc.Catalog != nil {
			if p, err := h.Svc.Catalog.Product(it.ProductID); err == nil {
				view.Name = p.Name
			}
		}
		items = append(items, view)
	}
	var promo *promoView
	if c.Promo != nil && summary.PromoCode != "" {
		promo = &promoView{
			Code:           c.Promo.Rule.Code,
			Kind:           c.Promo.Rule.Kind,
			Value:          c.Promo.Rule.Value,
			DiscountAmount: summary.Discount.Round(pricing.CurrencyPlaces),
		}
	}
	common.JSON(w, status, map[string]any{
		"data": map[string]any{
			"id":              c.ID,
			"items":           items,
			"promo":           promo,
			"summary":         summary.Rounded(),
			"totalMinorUnits": summary.TotalMinorUnits(),
			"currency":        h.Currency,
			"expiresAt":       c.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, pricing.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, catalog.ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidPromoCode):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PROMO_CODE", "Invalid promo code", nil)
	case errors.Is(err, pricing.ErrInvalidLineItem), errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
