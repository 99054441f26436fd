// Package usage tracks per-user and per-client counters in fixed windows. It
// backs the monthly session quota and the HTTP rate limiter.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore keeps integer counters that expire after their window.
type CounterStore interface {
	// Incr adds one to key and returns the new value. The first increment
	// starts the key's expiry of ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Get returns the current value of key, or 0 if it does not exist.
	Get(ctx context.Context, key string) (int64, error)
}

// RedisCounterStore implements CounterStore with INCR and EXPIRE
type RedisCounterStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCounterStore creates a store whose keys are namespaced by prefix
func NewRedisCounterStore(rdb *redis.Client, prefix string) *RedisCounterStore {
	return &RedisCounterStore{rdb: rdb, prefix: prefix}
}

// Incr implements CounterStore
func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	key = s.prefix + key
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	if n == 1 && ttl > 0 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to set expiry on %s: %w", key, err)
		}
	}
	return n, nil
}

// Get implements CounterStore
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, s.prefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.prefix+key, err)
	}
	return n, nil
}

// MemoryCounterStore implements CounterStore in process
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

type memoryCounter struct {
	value   int64
	expires time.Time
}

// NewMemoryCounterStore creates an empty in-memory store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]memoryCounter), now: time.Now}
}

// Incr implements CounterStore
func (s *MemoryCounterStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c, ok := s.counters[key]
	if !ok || (!c.expires.IsZero() && !now.Before(c.expires)) {
		c = memoryCounter{}
		if ttl > 0 {
			c.expires = now.Add(ttl)
		}
	}
	c.value++
	s.counters[key] = c
	return c.value, nil
}

// Get implements CounterStore
func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok || (!c.expires.IsZero() && !s.now().Before(c.expires)) {
		delete(s.counters, key)
		return 0, nil
	}
	return c.value, nil
}
