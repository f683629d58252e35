package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// DefaultRules is the storefront's single launch code.
const DefaultRules = "SPIRITUAL10:percentage:0.10"

// Source loads the full set of promo rules from a backing store.
type Source interface {
	LoadRules(ctx context.Context) ([]pricing.PromoRule, error)
}

// StaticSource serves a fixed rule set, typically parsed from configuration.
type StaticSource struct {
	rules []pricing.PromoRule
}

// NewStaticSource wraps rules as a Source.
func NewStaticSource(rules []pricing.PromoRule) *StaticSource {
	return &StaticSource{rules: append([]pricing.PromoRule(nil), rules...)}
}

// LoadRules implements Source.
func (s *StaticSource) LoadRules(context.Context) ([]pricing.PromoRule, error) {
	return append([]pricing.PromoRule(nil), s.rules...), nil
}

// ParseRules parses a comma separated list of CODE:kind:value entries, e.g.
// "SPIRITUAL10:percentage:0.10,WELCOME5:flat:5".
func ParseRules(raw string) ([]pricing.PromoRule, error) {
	var rules []pricing.PromoRule
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("promo rule %q: want CODE:kind:value", entry)
		}
		kind, err := pricing.ParseKind(parts[1])
		if err != nil {
			return nil, fmt.Errorf("promo rule %q: %w", entry, err)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("promo rule %q: invalid value: %w", entry, err)
		}
		rule := pricing.PromoRule{Code: pricing.NormalizeCode(parts[0]), Kind: kind, Value: value}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
