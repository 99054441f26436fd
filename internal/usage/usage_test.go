package usage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCounterStore_IncrSetsExpiryOnFirstHit(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisCounterStore(client, "test:")
	ctx := context.Background()

	n, err := store.Incr(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, mr.TTL("test:a"))

	mr.FastForward(30 * time.Second)
	n, err = store.Incr(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("test:a"))

	mr.FastForward(31 * time.Second)
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRedisCounterStore_GetMissing(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisCounterStore(client, "")

	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRedisCounterStore_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisCounterStore(client, "")
	mr.Close()

	_, err := store.Incr(context.Background(), "a", time.Minute)
	assert.Error(t, err)
}

func TestMemoryCounterStore_Window(t *testing.T) {
	store := NewMemoryCounterStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := store.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	now = now.Add(time.Minute)
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, got)

	n, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGate_AllowAndRecord(t *testing.T) {
	_, client := setupTestRedis(t)
	gate := NewGate(NewRedisCounterStore(client, "usage:"), map[string]int{"free": 2, "pro": Unlimited})
	gate.now = func() time.Time { return time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, gate.Allow(ctx, user, "free"))
		require.NoError(t, gate.Record(ctx, user))
	}
	assert.ErrorIs(t, gate.Allow(ctx, user, "free"), ErrQuotaExceeded)
	assert.NoError(t, gate.Allow(ctx, user, "pro"))

	used, err := gate.Used(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)

	// next month starts a new counter
	gate.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	assert.NoError(t, gate.Allow(ctx, user, "free"))
}

func TestGate_UnknownPlanUsesFreeQuota(t *testing.T) {
	store := NewMemoryCounterStore()
	gate := NewGate(store, map[string]int{"free": 1})
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, gate.Allow(ctx, user, "platinum"))
	require.NoError(t, gate.Record(ctx, user))
	assert.ErrorIs(t, gate.Allow(ctx, user, " Platinum "), ErrQuotaExceeded)
}

func TestGate_Usage(t *testing.T) {
	gate := NewGate(NewMemoryCounterStore(), map[string]int{"free": 2, "pro": Unlimited})
	gate.now = func() time.Time { return time.Date(2026, 12, 10, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Record(ctx, user))
	}

	u, err := gate.Usage(ctx, user, "free")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.Used)
	assert.Equal(t, 2, u.Limit)
	assert.Equal(t, int64(0), u.Remaining, "never negative")
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), u.ResetsAt)

	u, err = gate.Usage(ctx, user, "pro")
	require.NoError(t, err)
	assert.Equal(t, Unlimited, u.Limit)
	assert.Equal(t, int64(Unlimited), u.Remaining)
}

func TestUntilNextMonth(t *testing.T) {
	now := time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 36*time.Hour, untilNextMonth(now))
}
