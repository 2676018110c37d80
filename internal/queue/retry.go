package queue

import (
    "context"
    "errors"
    "math/rand"
    "time"
)

const (
    defaultMaxAttempts  = 6
    defaultBaseDelay    = 10 * time.Millisecond
    defaultJitterFactor = 0.3
)

var (
    // ErrInvalidMaxAttempts is returned when max attempts are not positive.
    ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

    // ErrNegativeBaseDelay is returned when the base delay is negative.
    ErrNegativeBaseDelay = errors.New("base delay must not be negative")

    // ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
    ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// permanentError marks a failure that another attempt cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that retry gives up immediately.
func Permanent(err error) error { return permanentError{err: err} }

type retryConfig struct {
    maxAttempts  int
    baseDelay    time.Duration
    jitterFactor float64
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int) RetryOption {
    return func(c *retryConfig) error {
        if attempts <= 0 {
            return ErrInvalidMaxAttempts
        }
        c.maxAttempts = attempts
        return nil
    }
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, ...
func WithBaseDelay(d time.Duration) RetryOption {
    return func(c *retryConfig) error {
        if d < 0 {
            return ErrNegativeBaseDelay
        }
        c.baseDelay = d
        return nil
    }
}

// WithJitterFactor sets the jitter added as a fraction of each delay.
func WithJitterFactor(f float64) RetryOption {
    return func(c *retryConfig) error {
        if f < 0.0 || f > 1.0 {
            return ErrInvalidJitterFactor
        }
        c.jitterFactor = f
        return nil
    }
}

// retry runs fn until it succeeds, returns a permanent or context error,
// or the attempts are used up.
//
// Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (+30% jitter).
func retry(ctx context.Context, fn func(ctx context.Context) error, options ...RetryOption) error {
    cfg := &retryConfig{
        maxAttempts:  defaultMaxAttempts,
        baseDelay:    defaultBaseDelay,
        jitterFactor: defaultJitterFactor,
    }
    for _, o := range options {
        if err := o(cfg); err != nil {
            return err
        }
    }

    var lastErr error
    for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
        if attempt > 0 {
            delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
            jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter only
            select {
            case <-time.After(delay + time.Duration(jitter)):
            case <-ctx.Done():
                return ctx.Err()
            }
        }

        lastErr = fn(ctx)
        if lastErr == nil {
            return nil
        }
        var perm permanentError
        if errors.As(lastErr, &perm) || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
            return lastErr
        }
    }
    return lastErr
}
