package payment_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/resilience"
)

type flakyProvider struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) CreateIntent(ctx context.Context, req payment.IntentRequest) (payment.IntentResponse, error) {
	if f.calls.Add(1) <= f.failures {
		return payment.IntentResponse{}, f.err
	}
	return payment.Placeholder{}.CreateIntent(ctx, req)
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	p := payment.Placeholder{}
	req := payment.IntentRequest{OrderID: "MS-ABCDEF12", Amount: 7358, Currency: "USD"}

	a, err := p.CreateIntent(context.Background(), req)
	require.NoError(t, err)
	b, err := p.CreateIntent(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a.IntentID, "pi_test_"))
	require.Equal(t, int64(7358), a.Amount)
	require.Equal(t, "usd", a.Currency)

	_, err = p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 1})
	require.ErrorIs(t, err, payment.ErrInvalidRequest)
}

func TestGuardedRetriesTransientFailures(t *testing.T) {
	provider := &flakyProvider{failures: 2, err: errors.New("timeout")}
	g := &payment.Guarded{
		Provider: provider,
		Breaker:  resilience.NewBreaker(resilience.Settings{MinRequests: 10}),
		Policy:   resilience.Policy{Attempts: 3, BaseBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	}
	resp, err := g.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "MS-1", Amount: 100, Currency: "usd"})
	require.NoError(t, err)
	require.Equal(t, "placeholder", resp.Provider)
	require.Equal(t, int32(3), provider.calls.Load())
}

func TestGuardedStopsOnDecline(t *testing.T) {
	provider := &flakyProvider{failures: 5, err: payment.ErrDeclined}
	g := &payment.Guarded{
		Provider: provider,
		Breaker:  resilience.NewBreaker(resilience.Settings{MinRequests: 1}),
		Policy:   resilience.Policy{Attempts: 3, BaseBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	}
	_, err := g.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "MS-2", Amount: 100})
	require.ErrorIs(t, err, payment.ErrDeclined)
	require.Equal(t, int32(1), provider.calls.Load())
	require.Equal(t, resilience.Closed, g.Breaker.State())
}

func TestGuardedOpenBreakerFailsFast(t *testing.T) {
	provider := &flakyProvider{failures: 100, err: errors.New("503")}
	g := &payment.Guarded{
		Provider: provider,
		Breaker:  resilience.NewBreaker(resilience.Settings{MinRequests: 2, OpenFor: time.Hour}),
		Policy:   resilience.Policy{Attempts: 5, BaseBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	}
	_, err := g.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "MS-3", Amount: 100})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, int32(2), provider.calls.Load())
}

func TestGuardedSkipsZeroAmount(t *testing.T) {
	provider := &flakyProvider{failures: 100, err: errors.New("should not be called")}
	g := &payment.Guarded{Provider: provider, Logger: zerolog.Nop()}
	resp, err := g.CreateIntent(context.Background(), payment.IntentRequest{OrderID: "MS-4", Amount: 0, Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, "not_required", resp.Status)
	require.Equal(t, int32(0), provider.calls.Load())
}
