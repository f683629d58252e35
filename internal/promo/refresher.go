package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/obs"
)

// Refresher keeps a Registry in sync with a Source.
type Refresher struct {
	Registry *Registry
	Source   Source
	// Name labels the source in logs and metrics.
	Name     string
	Interval time.Duration
	Logger   zerolog.Logger
}

// Reload pulls the rules once and swaps the registry snapshot. On failure the
// previous snapshot stays in place.
func (r *Refresher) Reload(ctx context.Context) error {
	if r == nil || r.Registry == nil || r.Source == nil {
		return fmt.Errorf("promo refresher not configured")
	}
	rules, err := r.Source.LoadRules(ctx)
	if err == nil {
		err = r.Registry.Replace(rules)
	}
	if err != nil {
		r.count("error")
		r.Logger.Warn().Err(err).Str("source", r.label()).Int("kept_rules", r.Registry.Len()).Msg("promo reload failed")
		return err
	}
	r.count("ok")
	if obs.PromoRulesLoaded != nil {
		obs.PromoRulesLoaded.Set(float64(r.Registry.Len()))
	}
	r.Logger.Debug().Str("source", r.label()).Int("rules", r.Registry.Len()).Msg("promo rules reloaded")
	return nil
}

// Run reloads on every tick until ctx is cancelled. A non-positive interval disables the loop.
func (r *Refresher) Run(ctx context.Context) {
	if r.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Reload(ctx)
		}
	}
}

func (r *Refresher) count(result string) {
	if obs.PromoReloadTotal != nil {
		obs.PromoReloadTotal.WithLabelValues(r.label(), result).Inc()
	}
}

func (r *Refresher) label() string {
	if r.Name == "" {
		return "static"
	}
	return r.Name
}
