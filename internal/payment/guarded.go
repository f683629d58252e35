package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/resilience"
)

// Guarded wraps a Provider with a circuit breaker and bounded retries.
// Zero-amount orders never reach the provider.
type Guarded struct {
	Provider Provider
	Breaker  *resilience.Breaker
	Policy   resilience.Policy
	Logger   zerolog.Logger
}

// Name implements Provider.
func (g *Guarded) Name() string { return g.Provider.Name() }

// CreateIntent implements Provider.
func (g *Guarded) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if req.Amount == 0 {
		g.count("skipped")
		return IntentResponse{
			Provider: "none",
			Amount:   0,
			Currency: strings.ToLower(req.Currency),
			Status:   "not_required",
		}, nil
	}

	var resp IntentResponse
	attempt := 0
	err := resilience.Retry(ctx, g.Policy, func(ctx context.Context) error {
		attempt++
		call := func(ctx context.Context) error {
			var err error
			resp, err = g.Provider.CreateIntent(ctx, req)
			return err
		}
		var err error
		if g.Breaker != nil {
			err = g.Breaker.Execute(ctx, call, isPermanent)
		} else {
			err = call(ctx)
		}
		if err != nil {
			g.Logger.Warn().Err(err).Str("order_id", req.OrderID).Int("attempt", attempt).Msg("payment intent attempt failed")
			if isPermanent(err) {
				return resilience.Permanent(err)
			}
		}
		return err
	})
	if err != nil {
		g.count("error")
		return IntentResponse{}, err
	}
	g.count("ok")
	return resp, nil
}

func (g *Guarded) count(result string) {
	if obs.PaymentIntentTotal != nil {
		obs.PaymentIntentTotal.WithLabelValues(g.Provider.Name(), result).Inc()
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrDeclined) || errors.Is(err, ErrInvalidRequest)
}
