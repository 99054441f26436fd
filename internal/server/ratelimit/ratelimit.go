// Package ratelimit provides fixed window rate limiting on a shared counter store.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonathan/interview-coach/internal/usage"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the interview endpoint limits.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// Limiter counts requests per client and endpoint in fixed windows. Counters
// live in a usage.CounterStore so that several server instances share them.
type Limiter struct {
	store  usage.CounterStore
	config *Config
	now    func() time.Time
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(store usage.CounterStore, config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{store: store, config: config, now: time.Now}
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// A store error is returned together with an allowing Info so callers can fail open.
func (l *Limiter) Allow(ctx context.Context, clientID, endpoint, method string) (Info, error) {
	unlimited := Info{Allowed: true}
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return unlimited, nil
	}
	if l.config.Blacklist[clientID] {
		return Info{Allowed: false}, nil
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{Path: "*", Method: "*", Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if ec.Limit <= 0 || ec.Window <= 0 {
		return unlimited, nil
	}

	now := l.now()
	start := now.Truncate(ec.Window)
	reset := start.Add(ec.Window)
	key := fmt.Sprintf("ratelimit:%s:%s:%s:%s", clientID, ec.Method, ec.Path, strconv.FormatInt(start.Unix(), 10))

	count, err := l.store.Incr(ctx, key, reset.Sub(now)+time.Second)
	if err != nil {
		return unlimited, fmt.Errorf("rate limit counter unavailable: %w", err)
	}

	info := Info{
		Allowed:   count <= int64(ec.Limit),
		Limit:     ec.Limit,
		Remaining: max(ec.Limit-int(count), 0),
		ResetTime: reset,
	}
	if !info.Allowed {
		info.RetryAfter = reset.Sub(now)
	}
	return info, nil
}
