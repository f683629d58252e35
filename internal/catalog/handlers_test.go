package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/catalog"
)

type productsResponse struct {
	Data []catalog.Product `json:"data"`
}

type productResponse struct {
	Data catalog.Product `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestCatalogHandlers(t *testing.T) {
	handler := catalog.NewHandler(catalog.Default())

	t.Run("products list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "14", rec.Header().Get("X-Total-Count"))
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 14)
		require.Equal(t, "p1", resp.Data[0].ID)
	})

	t.Run("filters combine", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=crystals&maxPrice=30&inStock=true", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		ids := make([]string, 0, len(resp.Data))
		for _, p := range resp.Data {
			ids = append(ids, p.ID)
		}
		require.Equal(t, []string{"p2", "p7"}, ids)
	})

	t.Run("search matches description", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?q=BEESWAX", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "p10", resp.Data[0].ID)
	})

	t.Run("bad max price", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?maxPrice=cheap", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("product detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/products/p3", nil), "p3"))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "White Sage Smudge Bundle", resp.Data.Name)
		require.Equal(t, "12.99", resp.Data.Price.StringFixed(2))
	})

	t.Run("product not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil), "nope"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("categories", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Tarot Decks")
	})
}

func TestCatalogLineItem(t *testing.T) {
	c := catalog.Default()

	item, err := c.LineItem("p1", 2)
	require.NoError(t, err)
	require.Equal(t, "42.99", item.UnitPrice.StringFixed(2))
	require.Equal(t, 2, item.Quantity)

	_, err = c.LineItem("p9", 1)
	require.ErrorIs(t, err, catalog.ErrOutOfStock)

	_, err = c.LineItem("missing", 1)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := catalog.New([]catalog.Product{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)
}

func withID(req *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
