package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	mu       sync.Mutex
	failures []error
	calls    int
	block    bool
}

func (f *flakyClient) call(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.failures) > 0 {
		err, f.failures = f.failures[0], f.failures[1:]
	}
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return `{"ok": true}`, nil
}

func (f *flakyClient) GenerateContent(ctx context.Context, _ string, _ ModelTier) (string, error) {
	return f.call(ctx)
}

func (f *flakyClient) GenerateJSON(ctx context.Context, _ string, _ ModelTier) (string, error) {
	return f.call(ctx)
}

func (f *flakyClient) GenerateJSONFromAudio(ctx context.Context, _ string, _ []byte, _ string, _ ModelTier) (string, error) {
	return f.call(ctx)
}

func (f *flakyClient) GetModel(tier ModelTier) string { return string(tier) }
func (f *flakyClient) Close() error                   { return nil }

func newTestRetrying(next Client, cfg RetryConfig) (*RetryingClient, *[]time.Duration) {
	c := NewRetryingClient(next, cfg, nil, nil)
	waits := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return c, waits
}

func rateLimited() error {
	return &ProviderError{Provider: "gemini", Code: ErrCodeRateLimit, Message: "slow down"}
}

func TestRetryingClient_RetriesTransientErrors(t *testing.T) {
	next := &flakyClient{failures: []error{rateLimited(), rateLimited()}}
	c, waits := newTestRetrying(next, RetryConfig{MaxRetries: 3, InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second})

	out, err := c.GenerateJSON(context.Background(), "p", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
	assert.Equal(t, 3, next.calls)
	require.Len(t, *waits, 2)
	assert.GreaterOrEqual(t, (*waits)[0], 50*time.Millisecond)
	assert.Less(t, (*waits)[0], 100*time.Millisecond)
	assert.GreaterOrEqual(t, (*waits)[1], 100*time.Millisecond)
	assert.Less(t, (*waits)[1], 200*time.Millisecond)
}

func TestRetryingClient_GivesUpAfterMaxRetries(t *testing.T) {
	next := &flakyClient{failures: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}}
	c, waits := newTestRetrying(next, RetryConfig{MaxRetries: 2, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond})

	_, err := c.GenerateContent(context.Background(), "p", TierLite)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, next.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryingClient_NonRetryableFailsFast(t *testing.T) {
	bad := &ProviderError{Provider: "gemini", Code: ErrCodeInvalidInput, Message: "bad prompt"}
	next := &flakyClient{failures: []error{bad}}
	c, waits := newTestRetrying(next, RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	_, err := c.GenerateJSON(context.Background(), "p", TierStandard)
	require.Error(t, err)
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, *waits)
}

func TestRetryingClient_ZeroRetriesIsSingleAttempt(t *testing.T) {
	next := &flakyClient{failures: []error{rateLimited()}}
	c, _ := newTestRetrying(next, RetryConfig{})

	_, err := c.GenerateJSON(context.Background(), "p", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingClient_AttemptTimeout(t *testing.T) {
	next := &flakyClient{block: true}
	c, _ := newTestRetrying(next, RetryConfig{Timeout: 20 * time.Millisecond, MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	_, err := c.GenerateJSONFromAudio(context.Background(), "p", []byte{1}, "audio/webm", TierLite)
	require.Error(t, err)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeTimeout, pe.Code)
	assert.Equal(t, 2, next.calls, "timeouts are retryable")
}

func TestRetryingClient_CanceledContextStops(t *testing.T) {
	next := &flakyClient{failures: []error{rateLimited(), rateLimited()}}
	c := NewRetryingClient(next, RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.GenerateJSON(ctx, "p", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := jitter(time.Second)
		assert.GreaterOrEqual(t, got, 500*time.Millisecond)
		assert.Less(t, got, time.Second)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
