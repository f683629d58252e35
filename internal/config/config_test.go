package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/config"
)

var cleared = map[string]string{
	"DATABASE_URL":                    "",
	"REDIS_URL":                       "",
	"PROMO_SOURCE":                    "",
	"PROMO_RULES":                     "",
	"CART_STORE":                      "",
	"CART_TTL":                        "",
	"PRICING_FREE_SHIPPING_THRESHOLD": "",
	"PRICING_FLAT_SHIPPING_FEE":       "",
	"PRICING_TAX_RATE":                "",
	"CURRENCY_CODE":                   "",
	"BOOKING_TIMEZONE":                "",
	"CONTACT_INBOX":                   "",
}

func env(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(cleared)+len(overrides))
	for k, v := range cleared {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(env(nil))
	require.NoError(t, err)

	require.Equal(t, "75", cfg.Pricing.FreeShippingThreshold.String())
	require.Equal(t, "5.99", cfg.Pricing.FlatShippingFee.String())
	require.Equal(t, "0.08", cfg.Pricing.TaxRate.String())
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, config.PromoSourceStatic, cfg.PromoSource)
	require.Equal(t, "SPIRITUAL10:percentage:0.10", cfg.PromoRules)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.False(t, cfg.UseRedisCarts())
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, time.UTC, cfg.BookingLocation())
	require.Equal(t, "hello@mysticshop.example", cfg.ContactInbox)
	require.Equal(t, "5-M", cfg.RateLimitContact)
}

func TestLoadBookingTimezone(t *testing.T) {
	cfg, err := config.LoadForTests(env(map[string]string{"BOOKING_TIMEZONE": "America/New_York"}))
	require.NoError(t, err)
	require.Equal(t, "America/New_York", cfg.BookingLocation().String())
}

func TestLoadPricingOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(env(map[string]string{
		"PRICING_FREE_SHIPPING_THRESHOLD": "50",
		"PRICING_FLAT_SHIPPING_FEE":       "4.50",
		"PRICING_TAX_RATE":                "0.0725",
		"CURRENCY_CODE":                   "eur",
		"REDIS_URL":                       "redis://localhost:6379/0",
	}))
	require.NoError(t, err)
	require.Equal(t, "50", cfg.Pricing.FreeShippingThreshold.String())
	require.Equal(t, "4.5", cfg.Pricing.FlatShippingFee.String())
	require.Equal(t, "0.0725", cfg.Pricing.TaxRate.String())
	require.Equal(t, "EUR", cfg.Currency)
	require.True(t, cfg.UseRedisCarts())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"negative tax":        {"PRICING_TAX_RATE": "-0.01"},
		"bad decimal":         {"PRICING_FLAT_SHIPPING_FEE": "five"},
		"unknown promo store": {"PROMO_SOURCE": "etcd"},
		"redis without url":   {"PROMO_SOURCE": "redis"},
		"postgres no url":     {"PROMO_SOURCE": "postgres"},
		"redis carts no url":  {"CART_STORE": "redis"},
		"unknown timezone":    {"BOOKING_TIMEZONE": "Mars/Olympus"},
		"inbox not an email":  {"CONTACT_INBOX": "front-desk"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadForTests(env(overrides))
			require.Error(t, err)
		})
	}
}
