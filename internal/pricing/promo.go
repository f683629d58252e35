package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PromoKind selects how a promo rule reduces the order.
type PromoKind string

const (
	// KindPercentage discounts a fraction of the subtotal (0.10 == 10%).
	KindPercentage PromoKind = "PERCENTAGE"
	// KindFlat discounts a fixed amount, capped at the subtotal.
	KindFlat PromoKind = "FLAT"
)

// ParseKind maps the accepted spellings of a promo kind onto PromoKind.
func ParseKind(value string) (PromoKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "percentage", "percent", "pct":
		return KindPercentage, nil
	case "flat", "fixed", "fixed_amount":
		return KindFlat, nil
	default:
		return "", fmt.Errorf("unknown promo kind %q", value)
	}
}

// PromoRule is a named discount rule. Rules are immutable once retrieved.
type PromoRule struct {
	Code  string    `json:"code"`
	Kind  PromoKind `json:"kind"`
	Value Money     `json:"value"`
}

// Validate checks the rule is usable: a code, a known kind and a positive value.
// Percentage rules may not exceed 1 (100%).
func (r PromoRule) Validate() error {
	if NormalizeCode(r.Code) == "" {
		return fmt.Errorf("promo code is required")
	}
	if !r.Value.IsPositive() {
		return fmt.Errorf("promo %s: value must be positive", r.Code)
	}
	switch r.Kind {
	case KindPercentage:
		if r.Value.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("promo %s: percentage must not exceed 1", r.Code)
		}
	case KindFlat:
	default:
		return fmt.Errorf("promo %s: unknown kind %q", r.Code, r.Kind)
	}
	return nil
}

// DiscountFor derives the discount this rule grants on the given subtotal.
func (r PromoRule) DiscountFor(subtotal Money) Money {
	if !subtotal.IsPositive() || !r.Value.IsPositive() {
		return decimal.Zero
	}
	var discount Money
	switch r.Kind {
	case KindPercentage:
		discount = subtotal.Mul(r.Value)
	case KindFlat:
		discount = decimal.Min(r.Value, subtotal)
	default:
		return decimal.Zero
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// AppliedPromo is a resolved promo for a cart. DiscountAmount is a display cache;
// ComputeSummary always recomputes it from the current subtotal.
type AppliedPromo struct {
	Rule           PromoRule `json:"rule"`
	DiscountAmount Money     `json:"discountAmount"`
}

// PromoLookup resolves normalised promo codes to rules.
type PromoLookup interface {
	LookupPromo(code string) (PromoRule, bool)
}

// PromoLookupFunc adapts a function to PromoLookup.
type PromoLookupFunc func(code string) (PromoRule, bool)

// LookupPromo implements PromoLookup.
func (f PromoLookupFunc) LookupPromo(code string) (PromoRule, bool) { return f(code) }

// NormalizeCode trims and case-folds a promo code into its lookup key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RemovePromo clears the applied promo.
func RemovePromo() *AppliedPromo { return nil }
