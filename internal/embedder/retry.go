package embedder

import (
	"context"
	"errors"
	"time"
)

// RetryConfig is the backoff policy for provider calls. MaxRetries counts
// attempts, so 1 disables retrying.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the policy used by the HTTP providers
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

func (c RetryConfig) attempts() int {
	return max(c.MaxRetries, 1)
}

// delay is the wait after the given zero-based failed attempt
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay)
	for range attempt {
		d *= c.Multiplier
		if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	return time.Duration(d)
}

// retryWithBackoff calls fn until it succeeds, the attempts run out, ctx is
// done or fn returns a permanent error. The last error is returned.
func retryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	n := cfg.attempts()

	for attempt := 0; ; attempt++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case ctx.Err() != nil:
			return zero, ctx.Err()
		case !isTemporary(err), attempt == n-1:
			return zero, err
		}

		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// isTemporary treats client errors (4xx other than 429) as permanent
func isTemporary(err error) bool {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Temporary()
	}
	return true
}
