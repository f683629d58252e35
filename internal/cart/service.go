package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/catalog"
	"github.com/noah-isme/mystic-pricing/internal/lock"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// LockKey is the lock name guarding a cart's read-modify-write cycle.
func LockKey(cartID string) string { return "cart:" + cartID }

// Service encapsulates cart domain operations.
type Service struct {
	Store   Store
	Catalog *catalog.Catalog
	Engine  pricing.Engine
	Promos  pricing.PromoLookup
	Locker  lock.Locker
	TTL     time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens an empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{ID: uuid.NewString(), Items: []pricing.LineItem{}, CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(s.ttl())}
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	return s.Store.Get(ctx, strings.TrimSpace(id))
}

// AddItem adds productID at its catalog price, or increments the quantity when already present.
func (s *Service) AddItem(ctx context.Context, id, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(c *Cart) error {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				if c.Items[i].Quantity > math.MaxInt-qty {
					return fmt.Errorf("%w: quantity of %q is too large", ErrInvalidInput, productID)
				}
				items, err := pricing.SetQuantity(c.Items, productID, c.Items[i].Quantity+qty)
				if err != nil {
					return err
				}
				c.Items = items
				return nil
			}
		}
		if s.Catalog == nil {
			return errors.New("cart catalog not configured")
		}
		item, err := s.Catalog.LineItem(productID, qty)
		if err != nil {
			return err
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

// SetQuantity replaces the quantity of productID. Quantities below one leave the cart unchanged.
func (s *Service) SetQuantity(ctx context.Context, id, productID string, qty int) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		items, err := pricing.SetQuantity(c.Items, productID, qty)
		if err != nil {
			return err
		}
		c.Items = items
		return nil
	})
}

// RemoveItem drops productID from the cart. Removing an absent product is a no-op.
func (s *Service) RemoveItem(ctx context.Context, id, productID string) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		c.Items = pricing.RemoveItem(c.Items, productID)
		return nil
	})
}

// ApplyPromo resolves code and attaches it to the cart, replacing any earlier promo.
func (s *Service) ApplyPromo(ctx context.Context, id, code string) (Cart, error) {
	c, err := s.mutate(ctx, id, func(c *Cart) error {
		applied, err := s.Engine.ApplyPromo(code, c.Items, s.Promos)
		if err != nil {
			return err
		}
		c.Promo = &applied
		return nil
	})
	switch {
	case err == nil:
		obs.CountPromoApply("applied")
		s.Logger.Info().Str("cart_id", id).Str("code", c.Promo.Rule.Code).Msg("promo applied")
	case errors.Is(err, pricing.ErrInvalidPromoCode):
		obs.CountPromoApply("rejected")
	}
	return c, err
}

// RemovePromo clears the applied promo.
func (s *Service) RemovePromo(ctx context.Context, id string) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		c.Promo = pricing.RemovePromo()
		return nil
	})
}

// Clear deletes the cart.
func (s *Service) Clear(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return s.Store.Delete(ctx, id)
}

// Summary prices c with its live promo.
func (s *Service) Summary(c Cart) (pricing.Summary, error) {
	summary, err := s.Engine.ComputeSummary(c.Items, c.Promo)
	if err != nil {
		obs.CountQuote("cart", "error")
		return pricing.Summary{}, err
	}
	obs.CountQuote("cart", "ok")
	return summary, nil
}

// QuoteLine is one requested line in a stateless quote. A nil UnitPrice is resolved from the catalog.
type QuoteLine struct {
	ProductID string         `json:"productId"`
	UnitPrice *pricing.Money `json:"unitPrice,omitempty"`
	Quantity  int            `json:"quantity"`
}

// QuoteResult is the priced outcome of a stateless quote.
type QuoteResult struct {
	Items      []pricing.LineItem `json:"items"`
	Summary    pricing.Summary    `json:"summary"`
	PromoError string             `json:"promoError,omitempty"`
}

// Quote prices lines without touching any cart. An unusable promo code is
// reported in PromoError and the quote is returned without a discount.
func (s *Service) Quote(lines []QuoteLine, code string) (QuoteResult, error) {
	items := make([]pricing.LineItem, 0, len(lines))
	for _, line := range lines {
		var (
			item pricing.LineItem
			err  error
		)
		if line.UnitPrice != nil {
			item = pricing.LineItem{ProductID: strings.TrimSpace(line.ProductID), UnitPrice: *line.UnitPrice, Quantity: line.Quantity}
			err = item.Validate()
		} else if s.Catalog != nil {
			item, err = s.Catalog.LineItem(line.ProductID, line.Quantity)
		} else {
			err = fmt.Errorf("%w: unit price required for %q", pricing.ErrInvalidLineItem, line.ProductID)
		}
		if err != nil {
			obs.CountQuote("quote", "error")
			return QuoteResult{}, err
		}
		items = append(items, item)
	}

	result := QuoteResult{Items: items}
	var applied *pricing.AppliedPromo
	if strings.TrimSpace(code) != "" {
		promo, err := s.Engine.ApplyPromo(code, items, s.Promos)
		switch {
		case err == nil:
			applied = &promo
		case errors.Is(err, pricing.ErrInvalidPromoCode):
			result.PromoError = "Invalid promo code"
		default:
			obs.CountQuote("quote", "error")
			return QuoteResult{}, err
		}
	}
	summary, err := s.Engine.ComputeSummary(items, applied)
	if err != nil {
		obs.CountQuote("quote", "error")
		return QuoteResult{}, err
	}
	obs.CountQuote("quote", "ok")
	result.Summary = summary
	return result, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Cart) error) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	id = strings.TrimSpace(id)
	var out Cart
	run := func(ctx context.Context) error {
		c, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		if len(c.Items) == 0 {
			c.Promo = nil
		}
		if c.Promo != nil {
			summary, err := s.Engine.ComputeSummary(c.Items, c.Promo)
			if err != nil {
				return err
			}
			c.Promo.DiscountAmount = summary.Discount
		}
		now := s.now()
		c.UpdatedAt = now
		c.ExpiresAt = now.Add(s.ttl())
		if err := s.Store.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	}
	var err error
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, LockKey(id), 10*time.Second, run)
	}
	if err != nil {
		return Cart{}, err
	}
	return out, nil
}
