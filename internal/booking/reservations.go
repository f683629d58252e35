package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Reservations claims slots so a start time is sold once.
type Reservations interface {
	// Reserve claims key for ref until the given time. It reports false when key is already held.
	Reserve(ctx context.Context, key, ref string, until time.Time) (bool, error)
	Release(ctx context.Context, key string) error
	// Taken returns the subset of keys currently held.
	Taken(ctx context.Context, keys []string) (map[string]bool, error)
}

func slotKey(o Offering, start time.Time) string {
	return o.ID + "@" + start.UTC().Format(time.RFC3339)
}

// MemoryReservations keeps claims in process memory.
type MemoryReservations struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewMemoryReservations returns an empty in-process reservation table.
func NewMemoryReservations(now func() time.Time) *MemoryReservations {
	if now == nil {
		now = time.Now
	}
	return &MemoryReservations{held: map[string]time.Time{}, clock: now}
}

// Reserve implements Reservations.
func (m *MemoryReservations) Reserve(_ context.Context, key, _ string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.held[key]; ok && m.clock().Before(exp) {
		return false, nil
	}
	m.held[key] = until
	return true, nil
}

// Release implements Reservations.
func (m *MemoryReservations) Release(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.held, key)
	m.mu.Unlock()
	return nil
}

// Taken implements Reservations.
func (m *MemoryReservations) Taken(_ context.Context, keys []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		if exp, ok := m.held[k]; ok && now.Before(exp) {
			out[k] = true
		}
	}
	return out, nil
}

// RedisReservations stores claims as expiring keys so every API instance sees them.
type RedisReservations struct {
	R      redis.UniversalClient
	Prefix string
	Now    func() time.Time
}

func (r RedisReservations) key(k string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "booking:"
	}
	return prefix + k
}

func (r RedisReservations) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Reserve implements Reservations with SET NX.
func (r RedisReservations) Reserve(ctx context.Context, key, ref string, until time.Time) (bool, error) {
	if r.R == nil {
		return false, errors.New("booking: redis client not configured")
	}
	ttl := until.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.R.SetNX(ctx, r.key(key), ref, ttl).Result()
}

// Release implements Reservations.
func (r RedisReservations) Release(ctx context.Context, key string) error {
	if r.R == nil {
		return nil
	}
	return r.R.Del(ctx, r.key(key)).Err()
}

// Taken implements Reservations with a single MGET.
func (r RedisReservations) Taken(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if r.R == nil || len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	vals, err := r.R.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v != nil {
			out[keys[i]] = true
		}
	}
	return out, nil
}
