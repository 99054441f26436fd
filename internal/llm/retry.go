package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/ecodeclub/ekit/retry"
	"github.com/jonathan/interview-coach/internal/metrics"
	"go.uber.org/zap"
)

// RetryConfig bounds every AI call made through a RetryingClient.
type RetryConfig struct {
	Timeout        time.Duration
	MaxRetries     int32
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the bounds used when none are configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:        45 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// RetryingClient decorates a Client with a per-attempt timeout and capped
// exponential backoff with jitter. Only retryable provider errors are retried.
type RetryingClient struct {
	next    Client
	cfg     RetryConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps next. A nil logger or metrics disables them.
func NewRetryingClient(next Client, cfg RetryConfig, logger *zap.Logger, m *metrics.Metrics) *RetryingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingClient{
		next:    next,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		sleep:   sleepContext,
	}
}

// GenerateContent implements Client
func (c *RetryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, "generate_content", tier, func(ctx context.Context) (string, error) {
		return c.next.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON implements Client
func (c *RetryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, "generate_json", tier, func(ctx context.Context) (string, error) {
		return c.next.GenerateJSON(ctx, prompt, tier)
	})
}

// GenerateJSONFromAudio implements Client
func (c *RetryingClient) GenerateJSONFromAudio(ctx context.Context, prompt string, audio []byte, mimeType string, tier ModelTier) (string, error) {
	return c.do(ctx, "generate_json_audio", tier, func(ctx context.Context) (string, error) {
		return c.next.GenerateJSONFromAudio(ctx, prompt, audio, mimeType, tier)
	})
}

// GetModel implements Client
func (c *RetryingClient) GetModel(tier ModelTier) string {
	return c.next.GetModel(tier)
}

// Close implements Client
func (c *RetryingClient) Close() error {
	return c.next.Close()
}

func (c *RetryingClient) do(ctx context.Context, op string, tier ModelTier, call func(ctx context.Context) (string, error)) (string, error) {
	if c.cfg.MaxRetries <= 0 {
		return c.attempt(ctx, call)
	}
	strategy, err := retry.NewExponentialBackoffRetryStrategy(c.cfg.InitialBackoff, c.cfg.MaxBackoff, c.cfg.MaxRetries)
	if err != nil {
		return "", err
	}

	for attempt := 1; ; attempt++ {
		out, err := c.attempt(ctx, call)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return "", err
		}
		next, ok := strategy.Next()
		if !ok {
			return "", err
		}
		wait := jitter(next)
		c.metrics.AIRetry(string(tier))
		c.logger.Warn("retrying AI call",
			zap.String("op", op),
			zap.String("tier", string(tier)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if c.sleep(ctx, wait) != nil {
			return "", err
		}
	}
}

func (c *RetryingClient) attempt(ctx context.Context, call func(ctx context.Context) (string, error)) (string, error) {
	if c.cfg.Timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	out, err := call(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && !IsRetryable(err) {
		return "", &ProviderError{Provider: "llm", Code: ErrCodeTimeout, Message: "AI call timed out", Err: err}
	}
	return out, err
}

// jitter returns a duration in [d/2, d)
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(half)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
