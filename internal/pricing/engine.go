package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tunable pricing rules.
type Config struct {
	FreeShippingThreshold Money
	FlatShippingFee       Money
	TaxRate               Money
}

// DefaultConfig returns the storefront defaults: free shipping from 75.00, a 5.99 flat fee
// below that and 8% tax.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.RequireFromString("75.00"),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// Validate ensures no pricing knob is negative.
func (c Config) Validate() error {
	if c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("%w: free shipping threshold is negative", ErrInvalidConfig)
	}
	if c.FlatShippingFee.IsNegative() {
		return fmt.Errorf("%w: flat shipping fee is negative", ErrInvalidConfig)
	}
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate is negative", ErrInvalidConfig)
	}
	return nil
}

// Summary is the priced breakdown of an order. It is derived on every query and never stored.
type Summary struct {
	Subtotal  Money  `json:"subtotal"`
	Shipping  Money  `json:"shipping"`
	Tax       Money  `json:"tax"`
	Discount  Money  `json:"discount"`
	Total     Money  `json:"total"`
	PromoCode string `json:"promoCode,omitempty"`
}

// Rounded returns the summary rounded to currency precision for display. Total is
// rounded from the exact total rather than re-summed from rounded parts.
func (s Summary) Rounded() Summary {
	return Summary{
		Subtotal:  s.Subtotal.Round(CurrencyPlaces),
		Shipping:  s.Shipping.Round(CurrencyPlaces),
		Tax:       s.Tax.Round(CurrencyPlaces),
		Discount:  s.Discount.Round(CurrencyPlaces),
		Total:     s.Total.Round(CurrencyPlaces),
		PromoCode: s.PromoCode,
	}
}

// TotalMinorUnits returns the rounded total in the smallest currency unit (cents).
func (s Summary) TotalMinorUnits() int64 {
	return s.Total.Round(CurrencyPlaces).Shift(CurrencyPlaces).IntPart()
}

// Engine prices line items under a fixed Config. The zero value is unusable; build it with NewEngine.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return Engine{}, err
	}
	return Engine{cfg: cfg}, nil
}

// MustEngine is NewEngine that panics on an invalid config.
func MustEngine(cfg Config) Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// ComputeSummary prices items with an optional applied promo. The discount is recomputed from
// the current subtotal, and a promo never survives an empty cart.
func (e Engine) ComputeSummary(items []LineItem, applied *AppliedPromo) (Summary, error) {
	subtotal, err := Subtotal(items)
	if err != nil {
		return Summary{}, err
	}
	shipping := e.shipping(subtotal, len(items))
	tax := subtotal.Mul(e.cfg.TaxRate)
	gross := subtotal.Add(shipping).Add(tax)

	discount := decimal.Zero
	code := ""
	if applied != nil && len(items) > 0 {
		discount = applied.Rule.DiscountFor(subtotal)
		if discount.GreaterThan(gross) {
			discount = gross
		}
		code = applied.Rule.Code
	}
	total := gross.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Summary{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Tax:       tax,
		Discount:  discount,
		Total:     total,
		PromoCode: code,
	}, nil
}

// ApplyPromo resolves code through lookup and returns the promo applied to items. The
// discount equals what ComputeSummary derives for the same items.
func (e Engine) ApplyPromo(code string, items []LineItem, lookup PromoLookup) (AppliedPromo, error) {
	key := NormalizeCode(code)
	if key == "" {
		return AppliedPromo{}, fmt.Errorf("%w: code is empty", ErrInvalidPromoCode)
	}
	if len(items) == 0 {
		return AppliedPromo{}, fmt.Errorf("%w: cart is empty", ErrInvalidPromoCode)
	}
	if lookup == nil {
		return AppliedPromo{}, fmt.Errorf("%w: %s", ErrInvalidPromoCode, key)
	}
	rule, ok := lookup.LookupPromo(key)
	if !ok {
		return AppliedPromo{}, fmt.Errorf("%w: %s", ErrInvalidPromoCode, key)
	}
	if err := rule.Validate(); err != nil {
		return AppliedPromo{}, fmt.Errorf("%w: %v", ErrInvalidPromoCode, err)
	}
	applied := AppliedPromo{Rule: rule}
	summary, err := e.ComputeSummary(items, &applied)
	if err != nil {
		return AppliedPromo{}, err
	}
	applied.DiscountAmount = summary.Discount
	return applied, nil
}

func (e Engine) shipping(subtotal Money, count int) Money {
	if count == 0 {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(e.cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.cfg.FlatShippingFee
}
