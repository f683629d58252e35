package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located or has expired.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Cart is a shopper's line items plus an optional applied promo.
type Cart struct {
	ID        string                `json:"id"`
	Items     []pricing.LineItem    `json:"items"`
	Promo     *pricing.AppliedPromo `json:"promo,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	ExpiresAt time.Time             `json:"expiresAt"`
}

// Expired reports whether the cart is past its expiry at now.
func (c Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store persists carts.
type Store interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]Cart
	now   func() time.Time
}

// NewMemoryStore constructs an empty store. A nil clock defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{carts: map[string]Cart{}, now: now}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Cart, error) {
	s.mu.RLock()
	c, ok := s.carts[id]
	s.mu.RUnlock()
	if !ok || c.Expired(s.now()) {
		return Cart{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(c), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, c Cart) error {
	s.mu.Lock()
	s.carts[c.ID] = clone(c)
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.carts, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired carts and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.carts {
		if c.Expired(now) {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// RedisStore keeps carts as JSON documents that expire with the cart.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cart:"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (Cart, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Cart{}, fmt.Errorf("load cart %s: %w", id, err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return c, nil
}

// Save implements Store. The key expires with the cart.
func (s *RedisStore) Save(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !c.ExpiresAt.IsZero() {
		ttl = c.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, c.ID)
		}
	}
	return s.client.Set(ctx, s.prefix+c.ID, data, ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

func clone(c Cart) Cart {
	c.Items = append([]pricing.LineItem(nil), c.Items...)
	if c.Promo != nil {
		p := *c.Promo
		c.Promo = &p
	}
	return c
}
