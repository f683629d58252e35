package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/mystic-pricing/internal/booking"
	"github.com/noah-isme/mystic-pricing/internal/cart"
	"github.com/noah-isme/mystic-pricing/internal/catalog"
	"github.com/noah-isme/mystic-pricing/internal/checkout"
	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/contact"
	"github.com/noah-isme/mystic-pricing/internal/health"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/ratelimit"
	"github.com/noah-isme/mystic-pricing/internal/security"
)

// RouterOptions toggles the optional instrumentation layers.
type RouterOptions struct {
	Metrics *obs.HTTPMetrics
	Tracing bool
}

// NewRouter mounts every HTTP route on a chi router.
func NewRouter(d *Dependencies, opts RouterOptions) (http.Handler, error) {
	cfg := d.Config
	newLimit := func(name, rate string) (func(http.Handler) http.Handler, error) {
		lim, err := ratelimit.New(d.LimiterStore, rate)
		if err != nil {
			return nil, err
		}
		return limited(name, lim, d), nil
	}
	generalLimit, err := newLimit("general", cfg.RateLimitGeneral)
	if err != nil {
		return nil, err
	}
	promoLimit, err := newLimit("promo", cfg.RateLimitPromo)
	if err != nil {
		return nil, err
	}
	checkoutLimit, err := newLimit("checkout", cfg.RateLimitCheckout)
	if err != nil {
		return nil, err
	}
	contactLimit, err := newLimit("contact", cfg.RateLimitContact)
	if err != nil {
		return nil, err
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware("mystic-pricing"))
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Handle("/metrics", promhttp.HandlerFor(d.MetricsRegistry, promhttp.HandlerOpts{Registry: d.MetricsRegistry}))

	probes := []health.Probe{health.PromoProbe(d.Promos.Len)}
	if d.Redis != nil {
		probes = append(probes, health.RedisProbe(d.Redis))
	}
	if d.DB != nil {
		probes = append(probes, health.PostgresProbe(d.DB))
	}
	healthHandler := health.Handler{Probes: probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	catalogHandler := catalog.NewHandler(d.Catalog)
	cartHandler := &cart.Handler{Svc: d.Carts, Currency: cfg.Currency}
	checkoutHandler := &checkout.Handler{Svc: d.Checkout}
	bookingHandler := &booking.Handler{Svc: d.Booking}
	contactHandler := &contact.Handler{Svc: d.Contact}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(generalLimit)

		v.Get("/categories", catalogHandler.Categories)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)

		v.Post("/pricing/quote", cartHandler.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.With(idem.Middleware).Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Post("/{id}/items", cartHandler.AddItem)
			c.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
			c.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
			c.With(promoLimit).Post("/{id}/promo", cartHandler.ApplyPromo)
			c.Delete("/{id}/promo", cartHandler.RemovePromo)
		})

		v.With(checkoutLimit, idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/services", bookingHandler.List)
		v.Get("/services/categories", bookingHandler.Categories)
		v.Get("/services/{id}", bookingHandler.Detail)
		v.Get("/services/{id}/slots", bookingHandler.Slots)
		v.With(checkoutLimit, idem.Middleware).Post("/bookings", bookingHandler.Book)

		v.With(contactLimit).Post("/contact", contactHandler.Submit)
	})
	return r, nil
}

func limited(name string, lim *limiter.Limiter, d *Dependencies) func(http.Handler) http.Handler {
	return ratelimit.Handler{
		Limiter: lim,
		Name:    name,
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Str("policy", name).Msg("rate limiter unavailable")
		},
	}.Middleware
}
