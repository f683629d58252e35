package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/app"
	"github.com/noah-isme/mystic-pricing/internal/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newServer(t *testing.T, env map[string]string) (*app.Dependencies, http.Handler) {
	t.Helper()
	base := map[string]string{
		"DATABASE_URL":       "",
		"REDIS_URL":          "",
		"PROMO_SOURCE":       "static",
		"PROMO_RULES":        "",
		"CART_STORE":         "",
		"RATE_LIMIT_GENERAL": "1000-M",
		"RATE_LIMIT_PROMO":   "3-M",
		"RATE_LIMIT_CONTACT": "",
		"BOOKING_TIMEZONE":   "",
		"CONTACT_INBOX":      "",
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.LoadForTests(base)
	require.NoError(t, err)

	deps, err := app.Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	h, err := app.NewRouter(deps, app.RouterOptions{})
	require.NoError(t, err)
	return deps, h
}

func call(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func createCart(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, env := call(t, h, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &c))
	require.NotEmpty(t, c.ID)
	return c.ID
}

const customer = `{"firstName":"Luna","lastName":"Starling","email":"luna@example.com","phone":"555-123-4567",` +
	`"address":"12 Moon Lane","city":"Sedona","state":"AZ","zipCode":"86336"}`

func TestStorefrontFlow(t *testing.T) {
	_, h := newServer(t, nil)

	rec, _ := call(t, h, http.MethodGet, "/api/v1/products?category=crystals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Total-Count"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	id := createCart(t, h)
	rec, _ = call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/items", `{"productId":"p1","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/items", `{"productId":"p3","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/promo", `{"code":" spiritual10 "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var priced struct {
		Summary struct {
			Total string `json:"total"`
		} `json:"summary"`
		TotalMinorUnits int64 `json:"totalMinorUnits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &priced))
	require.Equal(t, "73.58", priced.Summary.Total)
	require.Equal(t, int64(7358), priced.TotalMinorUnits)

	rec, env = call(t, h, http.MethodPost, "/api/v1/checkout", `{"cartId":"`+id+`","customer":`+customer+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		OrderNumber     string `json:"orderNumber"`
		TotalMinorUnits int64  `json:"totalMinorUnits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	require.True(t, strings.HasPrefix(order.OrderNumber, "MS-"))
	require.Equal(t, int64(7358), order.TotalMinorUnits)

	rec, env = call(t, h, http.MethodGet, "/api/v1/carts/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestPromoRateLimit(t *testing.T) {
	_, h := newServer(t, nil)
	id := createCart(t, h)
	call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/items", `{"productId":"p1"}`)

	codes := map[int]int{}
	for i := 0; i < 4; i++ {
		rec, _ := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/promo", `{"code":"GUESS`+string(rune('A'+i))+`"}`)
		codes[rec.Code]++
	}
	require.Equal(t, 3, codes[http.StatusUnprocessableEntity])
	require.Equal(t, 1, codes[http.StatusTooManyRequests])
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newServer(t, nil)

	rec, _ := call(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	call(t, h, http.MethodPost, "/api/v1/pricing/quote", `{"items":[{"productId":"p1","quantity":2}]}`)
	rec, _ = call(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRedisBackedCheckoutIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	deps, h := newServer(t, map[string]string{"REDIS_URL": "redis://" + mr.Addr()})
	require.NotNil(t, deps.Redis)
	require.Nil(t, deps.MemoryCarts)

	id := createCart(t, h)
	require.True(t, mr.Exists("cart:"+id))
	rec, _ := call(t, h, http.MethodPost, "/api/v1/carts/"+id+"/items", `{"productId":"p2","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := `{"cartId":"` + id + `","customer":` + customer + `}`
	first, firstEnv := call(t, h, http.MethodPost, "/api/v1/checkout", body, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second, secondEnv := call(t, h, http.MethodPost, "/api/v1/checkout", body, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, string(firstEnv.Data), string(secondEnv.Data))
}

func TestServiceBookingFlow(t *testing.T) {
	_, h := newServer(t, nil)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	rec, env := call(t, h, http.MethodGet, "/api/v1/services?category=tarot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	rec, env = call(t, h, http.MethodGet, "/api/v1/services/t3/slots?date="+tomorrow, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var day struct {
		Slots []struct {
			Time string `json:"time"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &day))
	require.Len(t, day.Slots, 18)

	body := `{"serviceId":"t3","date":"` + tomorrow + `","time":"10:00","customer":` +
		`{"name":"Luna Starling","email":"luna@example.com","phone":"555-123-4567"}}`
	rec, env = call(t, h, http.MethodPost, "/api/v1/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var booked struct {
		Reference       string `json:"reference"`
		TotalMinorUnits int64  `json:"totalMinorUnits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	require.True(t, strings.HasPrefix(booked.Reference, "BK-"))
	require.Equal(t, int64(8999), booked.TotalMinorUnits)

	rec, env = call(t, h, http.MethodPost, "/api/v1/bookings", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "SLOT_UNAVAILABLE", env.Error.Code)

	rec, env = call(t, h, http.MethodGet, "/api/v1/services/t3/slots?date="+tomorrow, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &day))
	require.Len(t, day.Slots, 17)
}

func TestContactFormRateLimit(t *testing.T) {
	_, h := newServer(t, map[string]string{"RATE_LIMIT_CONTACT": "2-M"})
	body := `{"name":"Luna","email":"luna@example.com","subject":"Hello","message":"Do you ship crystals abroad?"}`

	rec, env := call(t, h, http.MethodPost, "/api/v1/contact", `{"name":"Luna","email":"luna@example.com","subject":"Hi","message":"short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/contact", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = call(t, h, http.MethodPost, "/api/v1/contact", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "RATE_LIMITED", env.Error.Code)
}
