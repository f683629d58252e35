package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "expected %s, got %s", want, got.String())
}

func storefrontItems() []pricing.LineItem {
	return []pricing.LineItem{
		{ProductID: "p1", UnitPrice: d("42.99"), Quantity: 1},
		{ProductID: "p3", UnitPrice: d("12.99"), Quantity: 2},
	}
}

func spiritual10() pricing.PromoLookup {
	rule := pricing.PromoRule{Code: "SPIRITUAL10", Kind: pricing.KindPercentage, Value: d("0.10")}
	return pricing.PromoLookupFunc(func(code string) (pricing.PromoRule, bool) {
		if code == rule.Code {
			return rule, true
		}
		return pricing.PromoRule{}, false
	})
}

func TestComputeSummaryTaxExample(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())

	summary, err := engine.ComputeSummary(storefrontItems(), nil)
	require.NoError(t, err)
	requireMoney(t, "68.97", summary.Subtotal)
	requireMoney(t, "5.5176", summary.Tax)
	requireMoney(t, "5.99", summary.Shipping)
	requireMoney(t, "0", summary.Discount)
	requireMoney(t, "80.4776", summary.Total)
	require.Empty(t, summary.PromoCode)
}

func TestComputeSummaryPromoExample(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	items := storefrontItems()

	applied, err := engine.ApplyPromo("SPIRITUAL10", items, spiritual10())
	require.NoError(t, err)
	requireMoney(t, "6.897", applied.DiscountAmount)

	summary, err := engine.ComputeSummary(items, &applied)
	require.NoError(t, err)
	requireMoney(t, "6.897", summary.Discount)
	requireMoney(t, "73.5806", summary.Total)
	require.Equal(t, "SPIRITUAL10", summary.PromoCode)

	rounded := summary.Rounded()
	requireMoney(t, "73.58", rounded.Total)
	requireMoney(t, "5.52", rounded.Tax)
	requireMoney(t, "6.90", rounded.Discount)
	require.Equal(t, int64(7358), summary.TotalMinorUnits())
}

func TestShippingThresholdBoundary(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())

	cases := []struct {
		name     string
		price    string
		shipping string
	}{
		{name: "exactly threshold ships free", price: "75.00", shipping: "0"},
		{name: "one cent below pays flat fee", price: "74.99", shipping: "5.99"},
		{name: "above threshold ships free", price: "120.00", shipping: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary, err := engine.ComputeSummary([]pricing.LineItem{{ProductID: "p", UnitPrice: d(tc.price), Quantity: 1}}, nil)
			require.NoError(t, err)
			requireMoney(t, tc.shipping, summary.Shipping)
		})
	}
}

func TestComputeSummaryEmptyCartTotalsZero(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())

	summary, err := engine.ComputeSummary(nil, nil)
	require.NoError(t, err)
	require.True(t, summary.Total.IsZero())
	require.True(t, summary.Shipping.IsZero())

	summary, err = engine.ComputeSummary([]pricing.LineItem{{ProductID: "free", UnitPrice: d("0"), Quantity: 1}}, nil)
	require.NoError(t, err)
	require.True(t, summary.Total.IsPositive(), "a non-empty cart is never free under the default config")
}

func TestComputeSummaryTotalsNeverNegative(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	prices := []string{"0", "0.01", "9.99", "42.99", "74.99", "75", "500"}
	quantities := []int{1, 2, 7}
	for _, p := range prices {
		for _, q := range quantities {
			items := []pricing.LineItem{{ProductID: "x", UnitPrice: d(p), Quantity: q}}
			summary, err := engine.ComputeSummary(items, nil)
			require.NoError(t, err)
			require.False(t, summary.Total.IsNegative())
			require.False(t, summary.Total.IsZero())

			flat := &pricing.AppliedPromo{Rule: pricing.PromoRule{Code: "BIG", Kind: pricing.KindFlat, Value: d("10000")}}
			discounted, err := engine.ComputeSummary(items, flat)
			require.NoError(t, err)
			require.False(t, discounted.Total.IsNegative())
			want := discounted.Subtotal.Add(discounted.Shipping).Add(discounted.Tax).Sub(discounted.Discount)
			require.True(t, want.Equal(discounted.Total))
		}
	}
}

func TestComputeSummaryIsDeterministic(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	items := storefrontItems()
	applied := &pricing.AppliedPromo{Rule: pricing.PromoRule{Code: "SPIRITUAL10", Kind: pricing.KindPercentage, Value: d("0.10")}}

	first, err := engine.ComputeSummary(items, applied)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := engine.ComputeSummary(items, applied)
		require.NoError(t, err)
		require.Equal(t, first.Total.String(), next.Total.String())
		require.Equal(t, first.Tax.String(), next.Tax.String())
		require.Equal(t, first.Discount.String(), next.Discount.String())
	}
	require.Len(t, items, 2)
	require.Equal(t, 2, items[1].Quantity, "inputs must not be mutated")
}

func TestComputeSummaryRejectsInvalidItems(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	cases := map[string]pricing.LineItem{
		"negative price":   {ProductID: "p1", UnitPrice: d("-1"), Quantity: 1},
		"negative qty":     {ProductID: "p1", UnitPrice: d("1"), Quantity: -2},
		"zero qty":         {ProductID: "p1", UnitPrice: d("1"), Quantity: 0},
		"blank product id": {ProductID: "  ", UnitPrice: d("1"), Quantity: 1},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.ComputeSummary([]pricing.LineItem{item}, nil)
			require.ErrorIs(t, err, pricing.ErrInvalidLineItem)
		})
	}
}

func TestDiscountFollowsSubtotal(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	items := storefrontItems()

	applied, err := engine.ApplyPromo("spiritual10", items, spiritual10())
	require.NoError(t, err)

	items, err = pricing.SetQuantity(items, "p3", 5)
	require.NoError(t, err)

	summary, err := engine.ComputeSummary(items, &applied)
	require.NoError(t, err)
	requireMoney(t, "107.94", summary.Subtotal)
	requireMoney(t, "10.794", summary.Discount)
	requireMoney(t, "0", summary.Shipping)
	requireMoney(t, "105.7812", summary.Total)
}

func TestEmptyCartDropsPromo(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	items := []pricing.LineItem{{ProductID: "p1", UnitPrice: d("42.99"), Quantity: 1}}

	applied, err := engine.ApplyPromo("SPIRITUAL10", items, spiritual10())
	require.NoError(t, err)

	items = pricing.RemoveItem(items, "p1")
	summary, err := engine.ComputeSummary(items, &applied)
	require.NoError(t, err)
	require.True(t, summary.Discount.IsZero())
	require.True(t, summary.Total.IsZero())
	require.Empty(t, summary.PromoCode)
}

func TestApplyThenRemovePromoRoundTrips(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	items := storefrontItems()

	before, err := engine.ComputeSummary(items, nil)
	require.NoError(t, err)

	applied, err := engine.ApplyPromo("SPIRITUAL10", items, spiritual10())
	require.NoError(t, err)
	require.Equal(t, "SPIRITUAL10", applied.Rule.Code)

	cleared := pricing.RemovePromo()
	require.Nil(t, cleared)
	after, err := engine.ComputeSummary(items, cleared)
	require.NoError(t, err)
	require.Equal(t, before.Total.String(), after.Total.String())
	require.Equal(t, before.Discount.String(), after.Discount.String())
	require.Equal(t, before.PromoCode, after.PromoCode)
}

func TestApplyPromoFailures(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())

	_, err := engine.ApplyPromo("SPIRITUAL10", nil, spiritual10())
	require.ErrorIs(t, err, pricing.ErrInvalidPromoCode)

	_, err = engine.ApplyPromo("NOPE", storefrontItems(), spiritual10())
	require.ErrorIs(t, err, pricing.ErrInvalidPromoCode)

	_, err = engine.ApplyPromo("   ", storefrontItems(), spiritual10())
	require.ErrorIs(t, err, pricing.ErrInvalidPromoCode)

	_, err = engine.ApplyPromo("SPIRITUAL10", storefrontItems(), nil)
	require.ErrorIs(t, err, pricing.ErrInvalidPromoCode)

	bad := []pricing.LineItem{{ProductID: "p1", UnitPrice: d("-3"), Quantity: 1}}
	_, err = engine.ApplyPromo("SPIRITUAL10", bad, spiritual10())
	require.ErrorIs(t, err, pricing.ErrInvalidLineItem)
	require.False(t, errors.Is(err, pricing.ErrInvalidPromoCode))
}

func TestApplyPromoNormalizesCode(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	for _, code := range []string{"spiritual10", "  Spiritual10\t", "SPIRITUAL10"} {
		applied, err := engine.ApplyPromo(code, storefrontItems(), spiritual10())
		require.NoError(t, err, code)
		require.Equal(t, "SPIRITUAL10", applied.Rule.Code)
	}
}

func TestApplyPromoMatchesComputeSummary(t *testing.T) {
	cfg := pricing.DefaultConfig()
	cfg.TaxRate = d("0")
	cfg.FlatShippingFee = d("0")
	engine := pricing.MustEngine(cfg)
	flat := pricing.PromoLookupFunc(func(code string) (pricing.PromoRule, bool) {
		return pricing.PromoRule{Code: code, Kind: pricing.KindFlat, Value: d("500")}, true
	})
	items := []pricing.LineItem{{ProductID: "p2", UnitPrice: d("28.50"), Quantity: 1}}

	applied, err := engine.ApplyPromo("GIFT", items, flat)
	require.NoError(t, err)
	summary, err := engine.ComputeSummary(items, &applied)
	require.NoError(t, err)
	require.True(t, applied.DiscountAmount.Equal(summary.Discount))
	requireMoney(t, "28.50", summary.Discount)
	require.True(t, summary.Total.IsZero())
}

func TestNewEngineRejectsNegativeConfig(t *testing.T) {
	cfg := pricing.DefaultConfig()
	cfg.TaxRate = d("-0.01")
	_, err := pricing.NewEngine(cfg)
	require.ErrorIs(t, err, pricing.ErrInvalidConfig)
}

func TestCustomConfig(t *testing.T) {
	engine := pricing.MustEngine(pricing.Config{
		FreeShippingThreshold: d("50"),
		FlatShippingFee:       d("4.50"),
		TaxRate:               d("0.1"),
	})
	summary, err := engine.ComputeSummary([]pricing.LineItem{{ProductID: "p", UnitPrice: d("49.99"), Quantity: 1}}, nil)
	require.NoError(t, err)
	requireMoney(t, "4.50", summary.Shipping)
	requireMoney(t, "4.999", summary.Tax)
	requireMoney(t, "59.489", summary.Total)
	requireMoney(t, "59.49", summary.Rounded().Total)
}
