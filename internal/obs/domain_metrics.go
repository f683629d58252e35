package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts summaries computed for carts and stateless quotes.
	PricingQuotesTotal *prometheus.CounterVec
	// PromoApplyTotal counts promo code applications by outcome.
	PromoApplyTotal *prometheus.CounterVec
	// PromoReloadTotal counts promo registry reloads by source and outcome.
	PromoReloadTotal *prometheus.CounterVec
	// PromoRulesLoaded reports the size of the current promo snapshot.
	PromoRulesLoaded prometheus.Gauge
	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// PaymentIntentTotal counts payment intent creation attempts.
	PaymentIntentTotal *prometheus.CounterVec
	// OrderConfirmationTotal counts confirmation task outcomes.
	OrderConfirmationTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by a rate limit policy.
	RateLimitedTotal *prometheus.CounterVec
	// IdempotentReplayTotal counts responses served from the idempotency store.
	IdempotentReplayTotal prometheus.Counter
	// BookingTotal counts session booking attempts by outcome.
	BookingTotal *prometheus.CounterVec
	// ContactMessageTotal counts contact form submissions by outcome.
	ContactMessageTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of order summaries computed.",
		}, []string{"origin", "result"})
		PromoApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_apply_total",
			Help:      "Count of promo code applications by outcome.",
		}, []string{"result"})
		PromoReloadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_reload_total",
			Help:      "Count of promo registry reloads.",
		}, []string{"source", "result"})
		PromoRulesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "promo_rules_loaded",
			Help:      "Number of promo rules in the active snapshot.",
		})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"})
		PaymentIntentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_total",
			Help:      "Count of payment intent processing outcomes.",
		}, []string{"provider", "result"})
		OrderConfirmationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_confirmation_total",
			Help:      "Count of order confirmation deliveries by outcome.",
		}, []string{"result"})
		RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by rate limiting.",
		}, []string{"policy"})
		IdempotentReplayTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_replay_total",
			Help:      "Count of responses replayed for a repeated Idempotency-Key.",
		})
		BookingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_total",
			Help:      "Count of session booking attempts by outcome.",
		}, []string{"result"})
		ContactMessageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_message_total",
			Help:      "Count of contact form submissions by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, PricingQuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingQuotesTotal = v
			}
		})
		mustRegisterCollector(reg, PromoApplyTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoApplyTotal = v
			}
		})
		mustRegisterCollector(reg, PromoReloadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoReloadTotal = v
			}
		})
		mustRegisterCollector(reg, PromoRulesLoaded, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				PromoRulesLoaded = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentIntentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentIntentTotal = v
			}
		})
		mustRegisterCollector(reg, OrderConfirmationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderConfirmationTotal = v
			}
		})
		mustRegisterCollector(reg, RateLimitedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateLimitedTotal = v
			}
		})
		mustRegisterCollector(reg, IdempotentReplayTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				IdempotentReplayTotal = v
			}
		})
		mustRegisterCollector(reg, BookingTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BookingTotal = v
			}
		})
		mustRegisterCollector(reg, ContactMessageTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ContactMessageTotal = v
			}
		})
	})
}

// CountQuote records a computed summary.
func CountQuote(origin, result string) {
	if PricingQuotesTotal != nil {
		PricingQuotesTotal.WithLabelValues(origin, result).Inc()
	}
}

// CountPromoApply records a promo application outcome.
func CountPromoApply(result string) {
	if PromoApplyTotal != nil {
		PromoApplyTotal.WithLabelValues(result).Inc()
	}
}

// CountCheckout records a checkout outcome.
func CountCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// CountBooking records a booking outcome.
func CountBooking(result string) {
	if BookingTotal != nil {
		BookingTotal.WithLabelValues(result).Inc()
	}
}

// CountContactMessage records a contact form outcome.
func CountContactMessage(result string) {
	if ContactMessageTotal != nil {
		ContactMessageTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
