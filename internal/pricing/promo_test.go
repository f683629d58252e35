package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"percentage", "PERCENT", " pct "} {
		kind, err := pricing.ParseKind(in)
		require.NoError(t, err)
		require.Equal(t, pricing.KindPercentage, kind)
	}
	for _, in := range []string{"flat", "Fixed", "fixed_amount"} {
		kind, err := pricing.ParseKind(in)
		require.NoError(t, err)
		require.Equal(t, pricing.KindFlat, kind)
	}
	_, err := pricing.ParseKind("bogo")
	require.Error(t, err)
}

func TestPromoRuleValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, pricing.PromoRule{Code: "A", Kind: pricing.KindPercentage, Value: d("1")}.Validate())
	require.NoError(t, pricing.PromoRule{Code: "B", Kind: pricing.KindFlat, Value: d("250")}.Validate())

	require.Error(t, pricing.PromoRule{Code: "", Kind: pricing.KindFlat, Value: d("5")}.Validate())
	require.Error(t, pricing.PromoRule{Code: "C", Kind: pricing.KindFlat, Value: d("0")}.Validate())
	require.Error(t, pricing.PromoRule{Code: "D", Kind: pricing.KindPercentage, Value: d("1.5")}.Validate())
	require.Error(t, pricing.PromoRule{Code: "E", Kind: "BOGO", Value: d("1")}.Validate())
}

func TestDiscountFor(t *testing.T) {
	t.Parallel()

	pct := pricing.PromoRule{Code: "P", Kind: pricing.KindPercentage, Value: d("0.25")}
	requireMoney(t, "10", pct.DiscountFor(d("40")))
	require.True(t, pct.DiscountFor(d("0")).IsZero())

	flat := pricing.PromoRule{Code: "F", Kind: pricing.KindFlat, Value: d("15")}
	requireMoney(t, "15", flat.DiscountFor(d("40")))
	requireMoney(t, "9.99", flat.DiscountFor(d("9.99")))
}

func TestSummaryJSONUsesExactDecimals(t *testing.T) {
	t.Parallel()

	engine := pricing.MustEngine(pricing.DefaultConfig())
	summary, err := engine.ComputeSummary(storefrontItems(), nil)
	require.NoError(t, err)

	raw, err := json.Marshal(summary.Rounded())
	require.NoError(t, err)
	require.JSONEq(t, `{"subtotal":"68.97","shipping":"5.99","tax":"5.52","discount":"0","total":"80.48"}`, string(raw))
}
