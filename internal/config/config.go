package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// Promo rule backends.
const (
	PromoSourceStatic   = "static"
	PromoSourceRedis    = "redis"
	PromoSourcePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins string

	Pricing  pricing.Config
	Currency string

	PromoSource          string
	PromoRules           string
	PromoRefreshInterval time.Duration

	CartStore string
	CartTTL   time.Duration

	RateLimitGeneral  string
	RateLimitPromo    string
	RateLimitCheckout string
	RateLimitContact  string
	IdempotencyTTL    time.Duration
	BodyLimitBytes    int64

	PaymentPublishableKey string
	PaymentMaxRetries     int
	PaymentBreakerOpenFor time.Duration

	BookingTimezone string
	ContactInbox    string

	WorkerConcurrency int
	MetricsNamespace  string
	MetricsBuckets    string
	TracingExporter   string
	TracingEndpoint   string
	TracingSampling   float64
	ShutdownTimeout   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := pricing.DefaultConfig()
	var errs []error
	dec := func(key string, fallback decimal.Decimal) decimal.Decimal {
		d, err := parseDecimal(k.String(key), fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: valueOrDefault(k.String("CORS_ALLOWED_ORIGINS"), "*"),

		Pricing: pricing.Config{
			FreeShippingThreshold: dec("PRICING_FREE_SHIPPING_THRESHOLD", defaults.FreeShippingThreshold),
			FlatShippingFee:       dec("PRICING_FLAT_SHIPPING_FEE", defaults.FlatShippingFee),
			TaxRate:               dec("PRICING_TAX_RATE", defaults.TaxRate),
		},
		Currency: strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),

		PromoSource:          strings.ToLower(valueOrDefault(k.String("PROMO_SOURCE"), PromoSourceStatic)),
		PromoRules:           valueOrDefault(k.String("PROMO_RULES"), "SPIRITUAL10:percentage:0.10"),
		PromoRefreshInterval: parseDuration(k.String("PROMO_REFRESH_INTERVAL"), "1m"),

		CartStore: strings.ToLower(valueOrDefault(k.String("CART_STORE"), "auto")),
		CartTTL:   parseDuration(k.String("CART_TTL"), "168h"),

		RateLimitGeneral:  valueOrDefault(k.String("RATE_LIMIT_GENERAL"), "300-M"),
		RateLimitPromo:    valueOrDefault(k.String("RATE_LIMIT_PROMO"), "20-M"),
		RateLimitCheckout: valueOrDefault(k.String("RATE_LIMIT_CHECKOUT"), "10-M"),
		RateLimitContact:  valueOrDefault(k.String("RATE_LIMIT_CONTACT"), "5-M"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:    int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		PaymentPublishableKey: valueOrDefault(k.String("PAYMENT_PUBLISHABLE_KEY"), "pk_test_placeholder"),
		PaymentMaxRetries:     parseInt(k.String("PAYMENT_MAX_RETRIES"), 3),
		PaymentBreakerOpenFor: parseDuration(k.String("PAYMENT_BREAKER_OPEN_FOR"), "30s"),

		BookingTimezone: valueOrDefault(k.String("BOOKING_TIMEZONE"), "UTC"),
		ContactInbox:    valueOrDefault(k.String("CONTACT_INBOX"), "hello@mysticshop.example"),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),
		MetricsNamespace:  valueOrDefault(k.String("METRICS_NAMESPACE"), "mystic"),
		MetricsBuckets:    k.String("METRICS_BUCKETS_MS"),
		TracingExporter:   valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		TracingEndpoint:   k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingSampling:   k.Float64("OTEL_TRACES_SAMPLER_RATIO"),
		ShutdownTimeout:   parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}

	if err := cfg.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch cfg.PromoSource {
	case PromoSourceStatic:
	case PromoSourceRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("PROMO_SOURCE=redis requires REDIS_URL"))
		}
	case PromoSourcePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("PROMO_SOURCE=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("PROMO_SOURCE %q is not one of static, redis, postgres", cfg.PromoSource))
	}
	switch cfg.CartStore {
	case "auto", "memory":
	case "redis":
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("CART_STORE=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("CART_STORE %q is not one of auto, memory, redis", cfg.CartStore))
	}
	if _, err := time.LoadLocation(cfg.BookingTimezone); err != nil {
		errs = append(errs, fmt.Errorf("BOOKING_TIMEZONE: %w", err))
	}
	if !strings.Contains(cfg.ContactInbox, "@") {
		errs = append(errs, fmt.Errorf("CONTACT_INBOX %q is not an email address", cfg.ContactInbox))
	}
	if cfg.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// BookingLocation returns the time zone booking slots are offered in.
func (c *Config) BookingLocation() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UseRedisCarts reports whether carts should live in Redis.
func (c *Config) UseRedisCarts() bool {
	return c.CartStore == "redis" || (c.CartStore == "auto" && c.RedisURL != "")
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	var n int
	if _, err := fmt.Sscan(strings.TrimSpace(value), &n); err != nil {
		return fallback
	}
	return n
}

func parseDecimal(value string, fallback decimal.Decimal) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return fallback, fmt.Errorf("invalid decimal %q", value)
	}
	return d, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
