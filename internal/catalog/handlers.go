package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	catalog *Catalog
}

// NewHandler constructs a Handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Categories})
}

// Products handles GET /api/v1/products with optional category, q, maxPrice, inStock and featured filters.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	q := r.URL.Query()
	filter := Filter{
		Category:     q.Get("category"),
		Query:        q.Get("q"),
		InStockOnly:  parseFlag(q.Get("inStock")),
		FeaturedOnly: parseFlag(q.Get("featured")),
	}
	if raw := strings.TrimSpace(q.Get("maxPrice")); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil || max.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "maxPrice must be a non-negative number", nil)
			return
		}
		filter.MaxPrice = &max
	}
	items := h.catalog.List(filter)
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	product, err := h.catalog.Product(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
