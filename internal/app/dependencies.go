package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/mystic-pricing/internal/booking"
	"github.com/noah-isme/mystic-pricing/internal/cart"
	"github.com/noah-isme/mystic-pricing/internal/catalog"
	"github.com/noah-isme/mystic-pricing/internal/checkout"
	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/config"
	"github.com/noah-isme/mystic-pricing/internal/contact"
	"github.com/noah-isme/mystic-pricing/internal/lock"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
	"github.com/noah-isme/mystic-pricing/internal/promo"
	"github.com/noah-isme/mystic-pricing/internal/queue"
	"github.com/noah-isme/mystic-pricing/internal/ratelimit"
	"github.com/noah-isme/mystic-pricing/internal/resilience"
)

// Dependencies holds the services shared by the HTTP handlers and background loops.
// Redis and DB are nil when not configured.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Redis           redis.UniversalClient
	DB              *pgxpool.Pool
	MetricsRegistry *prometheus.Registry

	Catalog      *catalog.Catalog
	Promos       *promo.Registry
	Refresher    *promo.Refresher
	Carts        *cart.Service
	MemoryCarts  *cart.MemoryStore
	Checkout     *checkout.Service
	Booking      *booking.Service
	Contact      *contact.Service
	LimiterStore limiter.Store
	TaskClient   *asynq.Client

	closers []func() error
}

// Build connects to the configured backends and assembles the services.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger, MetricsRegistry: prometheus.NewRegistry()}
	d.MetricsRegistry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, d.MetricsRegistry)
	resilience.MustRegisterMetrics(cfg.MetricsNamespace, d.MetricsRegistry)

	fail := func(err error) (*Dependencies, error) {
		d.Close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return fail(err)
		}
		d.Redis = client
		d.closers = append(d.closers, client.Close)
	}
	if cfg.DatabaseURL != "" {
		pool, err := NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fail(err)
		}
		d.DB = pool
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
	}

	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		return fail(err)
	}
	d.Catalog = catalog.Default()

	if err := d.buildPromos(ctx); err != nil {
		return fail(err)
	}

	var locker lock.Locker = lock.NewLocal()
	var store cart.Store
	if d.Redis != nil {
		locker = lock.RedisLocker{R: d.Redis, Prefix: "lock:"}
	}
	if cfg.UseRedisCarts() && d.Redis != nil {
		store = cart.NewRedisStore(d.Redis, "")
	} else {
		d.MemoryCarts = cart.NewMemoryStore(nil)
		store = d.MemoryCarts
	}
	d.Carts = &cart.Service{
		Store:   store,
		Catalog: d.Catalog,
		Engine:  engine,
		Promos:  d.Promos,
		Locker:  locker,
		TTL:     cfg.CartTTL,
		Logger:  logger.With().Str("component", "cart").Logger(),
	}

	d.LimiterStore, err = ratelimit.NewStore(d.Redis, "")
	if err != nil {
		return fail(err)
	}

	confirmations, err := d.buildQueue()
	if err != nil {
		return fail(err)
	}
	payments := &payment.Guarded{
		Provider: payment.Placeholder{PublishableKey: cfg.PaymentPublishableKey},
		Breaker: resilience.NewBreaker(resilience.Settings{
			Target:  "payment",
			OpenFor: cfg.PaymentBreakerOpenFor,
			Logger:  logger,
		}),
		Policy: resilience.Policy{Attempts: cfg.PaymentMaxRetries, BaseBackoff: 200 * time.Millisecond, Jitter: 0.2},
		Logger: logger.With().Str("component", "payment").Logger(),
	}
	validate := common.NewValidator()
	d.Checkout = &checkout.Service{
		Carts:     d.Carts,
		Locker:    locker,
		Payments:  payments,
		Queue:     confirmations,
		Validator: validate,
		Currency:  cfg.Currency,
		Logger:    logger.With().Str("component", "checkout").Logger(),
	}

	sessionEngine, err := pricing.NewEngine(booking.PricingConfig())
	if err != nil {
		return fail(err)
	}
	var reservations booking.Reservations = booking.NewMemoryReservations(nil)
	if d.Redis != nil {
		reservations = booking.RedisReservations{R: d.Redis}
	}
	d.Booking = &booking.Service{
		Menu:         booking.DefaultMenu(),
		Schedule:     booking.DefaultSchedule(cfg.BookingLocation()),
		Reservations: reservations,
		Engine:       sessionEngine,
		Payments:     payments,
		Validator:    validate,
		Currency:     cfg.Currency,
		Logger:       logger.With().Str("component", "booking").Logger(),
	}
	d.Contact = &contact.Service{
		Mail:      common.LogEmailSender{Logger: logger.With().Str("component", "mail").Logger()},
		Inbox:     cfg.ContactInbox,
		Validator: validate,
		Logger:    logger.With().Str("component", "contact").Logger(),
	}
	return d, nil
}

func (d *Dependencies) buildPromos(ctx context.Context) error {
	cfg := d.Config
	static, err := promo.ParseRules(cfg.PromoRules)
	if err != nil {
		return fmt.Errorf("PROMO_RULES: %w", err)
	}
	var source promo.Source
	switch cfg.PromoSource {
	case config.PromoSourceRedis:
		source = promo.NewRedisSource(d.Redis, promo.DefaultRedisKey)
	case config.PromoSourcePostgres:
		if err := promo.Migrate(cfg.DatabaseURL, d.Logger); err != nil {
			return err
		}
		source = promo.NewPostgresSource(d.DB)
	default:
		source = promo.NewStaticSource(static)
	}
	d.Promos, _ = promo.NewRegistry()
	d.Refresher = &promo.Refresher{
		Registry: d.Promos,
		Source:   source,
		Name:     cfg.PromoSource,
		Interval: cfg.PromoRefreshInterval,
		Logger:   d.Logger.With().Str("component", "promo").Logger(),
	}
	if err := d.Refresher.Reload(ctx); err != nil || d.Promos.Len() == 0 {
		d.Logger.Warn().Err(err).Str("source", cfg.PromoSource).Msg("promo source empty or unavailable, serving PROMO_RULES")
		if err := d.Promos.Replace(static); err != nil {
			return err
		}
	}
	return nil
}

// buildQueue enqueues confirmations for cmd/worker when Redis is configured and
// delivers them in-process otherwise.
func (d *Dependencies) buildQueue() (queue.ConfirmationQueue, error) {
	if d.Redis == nil {
		return queue.Inline{Handler: &queue.ConfirmationHandler{
			Email:  common.LogEmailSender{Logger: d.Logger},
			Logger: d.Logger.With().Str("component", "confirmation").Logger(),
		}}, nil
	}
	opt, err := asynq.ParseRedisURI(d.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq redis uri: %w", err)
	}
	d.TaskClient = asynq.NewClient(opt)
	d.closers = append(d.closers, d.TaskClient.Close)
	return queue.Enqueuer{Client: d.TaskClient}, nil
}

// Close releases every connection opened by Build.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// NewRedis parses url, instruments the client with OpenTelemetry and pings it.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewPool opens a traced pgx pool and pings it.
func NewPool(ctx context.Context, url string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{Logger: logger, SlowQuery: 200 * time.Millisecond}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "mystic-pricing"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
