package booking_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mystic-pricing/internal/booking"
)

func TestMemoryReservationsExpire(t *testing.T) {
	now := monday
	res := booking.NewMemoryReservations(func() time.Time { return now })
	ctx := context.Background()

	ok, err := res.Reserve(ctx, "t1@slot", "BK-1", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = res.Reserve(ctx, "t1@slot", "BK-2", now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	taken, err := res.Taken(ctx, []string{"t1@slot", "t1@other"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"t1@slot": true}, taken)

	now = now.Add(2 * time.Hour)
	ok, err = res.Reserve(ctx, "t1@slot", "BK-3", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, res.Release(ctx, "t1@slot"))
	taken, err = res.Taken(ctx, []string{"t1@slot"})
	require.NoError(t, err)
	require.Empty(t, taken)
}

func TestRedisReservations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	res := booking.RedisReservations{R: client, Now: func() time.Time { return monday }}
	ctx := context.Background()

	ok, err := res.Reserve(ctx, "t1@slot", "BK-1", monday.Add(90*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 90*time.Minute, mr.TTL("booking:t1@slot"))

	got, err := mr.Get("booking:t1@slot")
	require.NoError(t, err)
	require.Equal(t, "BK-1", got)

	ok, err = res.Reserve(ctx, "t1@slot", "BK-2", monday.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	taken, err := res.Taken(ctx, []string{"t1@slot", "t2@slot"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"t1@slot": true}, taken)

	require.NoError(t, res.Release(ctx, "t1@slot"))
	require.False(t, mr.Exists("booking:t1@slot"))
}

func TestServiceWithRedisReservations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newService(t, nil)
	svc.Reservations = booking.RedisReservations{R: client, Now: svc.Now}
	ctx := context.Background()

	b, err := svc.Book(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, mr.Exists("booking:t2@2026-10-20T14:30:00Z"))

	held, err := mr.Get("booking:t2@2026-10-20T14:30:00Z")
	require.NoError(t, err)
	require.Equal(t, b.Reference, held)

	_, err = svc.Book(ctx, validRequest())
	require.ErrorIs(t, err, booking.ErrSlotUnavailable)
}
