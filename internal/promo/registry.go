package promo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// Registry is an in-memory snapshot of promo rules keyed by normalised code.
// It is safe for concurrent use and satisfies pricing.PromoLookup.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]pricing.PromoRule
}

// NewRegistry builds a registry seeded with rules.
func NewRegistry(rules ...pricing.PromoRule) (*Registry, error) {
	r := &Registry{rules: map[string]pricing.PromoRule{}}
	if err := r.Replace(rules); err != nil {
		return nil, err
	}
	return r, nil
}

// LookupPromo implements pricing.PromoLookup.
func (r *Registry) LookupPromo(code string) (pricing.PromoRule, bool) {
	if r == nil {
		return pricing.PromoRule{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[pricing.NormalizeCode(code)]
	return rule, ok
}

// Replace swaps the whole snapshot. Nothing changes when any rule is invalid or duplicated.
func (r *Registry) Replace(rules []pricing.PromoRule) error {
	next := make(map[string]pricing.PromoRule, len(rules))
	for _, rule := range rules {
		rule.Code = pricing.NormalizeCode(rule.Code)
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, dup := next[rule.Code]; dup {
			return fmt.Errorf("duplicate promo code %s", rule.Code)
		}
		next[rule.Code] = rule
	}
	r.mu.Lock()
	r.rules = next
	r.mu.Unlock()
	return nil
}

// Rules lists the current rules ordered by code.
func (r *Registry) Rules() []pricing.PromoRule {
	r.mu.RLock()
	out := make([]pricing.PromoRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len reports the number of rules in the snapshot.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
