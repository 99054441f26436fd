package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/interview-coach/internal/usage"
)

func newTestLimiter(config *Config) (*Limiter, *time.Time) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	l := NewLimiter(usage.NewMemoryCounterStore(), config)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})
	ctx := context.Background()

	// Should allow requests up to limit
	for i := 0; i < 10; i++ {
		info, err := limiter.Allow(ctx, "127.0.0.1", "/sessions/abc", "GET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.Allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", info.Limit)
		}
		if info.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, info.Remaining)
		}
	}

	// 11th request should be denied
	info, _ := limiter.Allow(ctx, "127.0.0.1", "/sessions/abc", "GET")
	if info.Allowed {
		t.Error("Expected 11th request to be denied")
	}
	if info.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", info.Remaining)
	}
	if info.RetryAfter != time.Minute {
		t.Errorf("Expected retry after 1m, got %v", info.RetryAfter)
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	limiter, now := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	ctx := context.Background()

	if info, _ := limiter.Allow(ctx, "c", "/x", "GET"); !info.Allowed {
		t.Fatal("Expected first request to be allowed")
	}
	*now = now.Add(30 * time.Second)
	info, _ := limiter.Allow(ctx, "c", "/x", "GET")
	if info.Allowed {
		t.Fatal("Expected second request in the same window to be denied")
	}
	if info.RetryAfter != 30*time.Second {
		t.Errorf("Expected retry after 30s, got %v", info.RetryAfter)
	}

	*now = now.Add(30 * time.Second)
	if info, _ := limiter.Allow(ctx, "c", "/x", "GET"); !info.Allowed {
		t.Error("Expected request in the next window to be allowed")
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})

	// Whitelisted IP should always be allowed
	for i := 0; i < 100; i++ {
		info, _ := limiter.Allow(context.Background(), "127.0.0.1", "/test", "GET")
		if !info.Allowed {
			t.Errorf("Expected whitelisted request %d to be allowed", i+1)
		}
		if info.Limit != 0 {
			t.Errorf("Expected limit 0 for whitelisted, got %d", info.Limit)
		}
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})

	info, _ := limiter.Allow(context.Background(), "192.168.1.1", "/test", "GET")
	if info.Allowed {
		t.Error("Expected blacklisted request to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: false})

	for i := 0; i < 100; i++ {
		info, _ := limiter.Allow(context.Background(), "127.0.0.1", "/test", "GET")
		if !info.Allowed {
			t.Errorf("Expected request %d to be allowed when disabled", i+1)
		}
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/sessions", Method: "POST", Limit: 5, Window: time.Hour},
		},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		info, _ := limiter.Allow(ctx, "127.0.0.1", "/sessions", "POST")
		if !info.Allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 5 {
			t.Errorf("Expected limit 5, got %d", info.Limit)
		}
	}

	info, _ := limiter.Allow(ctx, "127.0.0.1", "/sessions", "POST")
	if info.Allowed {
		t.Error("Expected 6th request to be denied")
	}

	// Different endpoint should use default limit
	info, _ = limiter.Allow(ctx, "127.0.0.1", "/sessions/abc", "GET")
	if !info.Allowed {
		t.Error("Expected different endpoint to be allowed")
	}
	if info.Limit != 1000 {
		t.Errorf("Expected default limit 1000, got %d", info.Limit)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		allowedCount int
	)

	// Make 200 concurrent requests (should only allow 100)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, _ := limiter.Allow(context.Background(), "127.0.0.1", "/test", "GET")
			if info.Allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowedCount)
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Get(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiter_StoreErrorAllows(t *testing.T) {
	limiter := NewLimiter(failingStore{}, nil)

	info, err := limiter.Allow(context.Background(), "127.0.0.1", "/sessions", "POST")
	if err == nil {
		t.Fatal("Expected store error to be returned")
	}
	if !info.Allowed {
		t.Error("Expected request to be allowed when the store fails")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantPath  string
		wantLimit int
		wantNil   bool
	}{
		{name: "health", path: "/health", method: "GET", wantPath: "/health", wantLimit: 0},
		{name: "create session", path: "/sessions", method: "POST", wantPath: "/sessions", wantLimit: 20},
		{name: "voice answer", path: "/sessions/1/questions/2/voice", method: "POST", wantPath: "/sessions/{id}/questions/{n}/voice", wantLimit: 30},
		{name: "text answer", path: "/sessions/1/questions/2/answer", method: "POST", wantPath: "/sessions/{id}/questions/{n}/answer", wantLimit: 60},
		{name: "complete", path: "/sessions/1/complete", method: "POST", wantPath: "/sessions/{id}/complete", wantLimit: 20},
		{name: "other write falls back to prefix", path: "/sessions/1/pause", method: "POST", wantPath: "/sessions/", wantLimit: 120},
		{name: "read uses default", path: "/sessions/1", method: "GET", wantNil: true},
		{name: "empty segment", path: "/sessions//questions/2/voice", method: "POST", wantPath: "/sessions/", wantLimit: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Expected no match, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a match")
			}
			if got.Path != tt.wantPath || got.Limit != tt.wantLimit {
				t.Errorf("Expected %s limit %d, got %s limit %d", tt.wantPath, tt.wantLimit, got.Path, got.Limit)
			}
		})
	}
}
