package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/cart"
	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/lock"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
	"github.com/noah-isme/mystic-pricing/internal/queue"
)

var (
	// ErrEmptyCart is returned when checking out a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPayment wraps failures of the payment provider.
	ErrPayment = errors.New("payment failed")
)

// Input is a checkout request.
type Input struct {
	CartID   string       `json:"cartId"`
	Customer CustomerInfo `json:"customer"`
}

// Output is a placed order.
type Output struct {
	OrderNumber     string                 `json:"orderNumber"`
	Status          string                 `json:"status"`
	Customer        CustomerInfo           `json:"customer"`
	Items           []pricing.LineItem     `json:"items"`
	Summary         pricing.Summary        `json:"summary"`
	TotalMinorUnits int64                  `json:"totalMinorUnits"`
	Currency        string                 `json:"currency"`
	Payment         payment.IntentResponse `json:"payment"`
	PlacedAt        time.Time              `json:"placedAt"`
}

// Service places orders from carts.
type Service struct {
	Carts     *cart.Service
	Locker    lock.Locker
	Payments  payment.Provider
	Queue     queue.ConfirmationQueue
	Validator *common.Validator
	Currency  string
	LockTTL   time.Duration
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Place validates the customer, prices the cart under its lock, opens a payment
// intent for the rounded total, clears the cart and queues the confirmation.
func (s *Service) Place(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Carts == nil || s.Payments == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	validator := s.Validator
	if validator == nil {
		validator = common.NewValidator()
	}
	customer, err := validateCustomer(validator, in.Customer)
	if err != nil {
		obs.CountCheckout("invalid")
		return Output{}, err
	}
	cartID := strings.TrimSpace(in.CartID)
	if cartID == "" {
		obs.CountCheckout("invalid")
		return Output{}, common.FieldErrors{"cartId": "This field is required"}
	}

	var out Output
	place := func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return ErrEmptyCart
		}
		summary, err := s.Carts.Summary(c)
		if err != nil {
			return err
		}
		orderNumber := newOrderNumber()
		intent, err := s.Payments.CreateIntent(ctx, payment.IntentRequest{
			OrderID:  orderNumber,
			Amount:   summary.TotalMinorUnits(),
			Currency: s.currency(),
			Email:    customer.Email,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPayment, err)
		}
		if err := s.Carts.Clear(ctx, cartID); err != nil {
			s.Logger.Error().Err(err).Str("cart_id", cartID).Str("order_number", orderNumber).Msg("clear cart after checkout")
		}
		out = Output{
			OrderNumber:     orderNumber,
			Status:          "placed",
			Customer:        customer,
			Items:           c.Items,
			Summary:         summary,
			TotalMinorUnits: summary.TotalMinorUnits(),
			Currency:        s.currency(),
			Payment:         intent,
			PlacedAt:        s.now(),
		}
		return nil
	}

	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, cart.LockKey(cartID), s.lockTTL(), place)
	} else {
		err = place(ctx)
	}
	if err != nil {
		obs.CountCheckout(resultLabel(err))
		return Output{}, err
	}
	obs.CountCheckout("placed")
	s.Logger.Info().
		Str("order_number", out.OrderNumber).
		Str("total", out.Summary.Total.StringFixed(pricing.CurrencyPlaces)).
		Str("promo", out.Summary.PromoCode).
		Msg("order placed")

	if s.Queue != nil {
		err := s.Queue.EnqueueOrderConfirmation(ctx, queue.OrderConfirmation{
			OrderNumber:     out.OrderNumber,
			Email:           customer.Email,
			CustomerName:    customer.FullName(),
			Items:           out.Items,
			Summary:         out.Summary,
			Currency:        out.Currency,
			PaymentIntentID: out.Payment.IntentID,
			PlacedAt:        out.PlacedAt,
		})
		if err != nil {
			s.Logger.Error().Err(err).Str("order_number", out.OrderNumber).Msg("enqueue order confirmation")
		}
	}
	return out, nil
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func newOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "MS-" + strings.ToUpper(id[:8])
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, cart.ErrNotFound):
		return "cart_not_found"
	case errors.Is(err, ErrPayment):
		return "payment_failed"
	case errors.Is(err, lock.ErrNotAcquired):
		return "busy"
	default:
		return "error"
	}
}
