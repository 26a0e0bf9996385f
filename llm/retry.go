// Model call retry policy.
//
// Information Hiding:
// - Backoff algorithm hidden
// - Jitter source hidden
// - Attempt accounting hidden

package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry defaults.
const (
	DefaultMaxRetries   = 10
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 120 * time.Second
	DefaultMaxJitter    = 1 * time.Second
)

// ExhaustedRetriesError is returned when every attempt of a model call failed.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// RetryPolicy retries a model call with capped exponential backoff plus jitter.
// The zero value is usable and means the defaults above.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxJitter    time.Duration

	// OnRetry is called before each sleep with the failed attempt number (1-based).
	OnRetry func(attempt, maxRetries int, delay time.Duration, err error)

	jitter func() float64 // returns a value in [0, 1)
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxJitter:    DefaultMaxJitter,
	}
}

func (p RetryPolicy) maxRetries() int {
	if p.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

func (p RetryPolicy) initialDelay() time.Duration {
	if p.InitialDelay <= 0 {
		return DefaultInitialDelay
	}
	return p.InitialDelay
}

func (p RetryPolicy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return p.MaxDelay
}

func (p RetryPolicy) maxJitter() time.Duration {
	if p.MaxJitter < 0 {
		return 0
	}
	if p.MaxJitter == 0 {
		return DefaultMaxJitter
	}
	return p.MaxJitter
}

// Delay returns the sleep after the failed attempt with 0-based index attempt.
// jitter must be in [0, 1) and is scaled by MaxJitter.
func (p RetryPolicy) Delay(attempt int, jitter float64) time.Duration {
	base := p.initialDelay()
	limit := p.maxDelay()

	delay := base
	for i := 0; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		delay = limit
	}
	return delay + time.Duration(jitter*float64(p.maxJitter()))
}

// backoff produces the delay sequence for one Invoke call.
func (p RetryPolicy) backoff() retry.Backoff {
	jitter := p.jitter
	if jitter == nil {
		jitter = rand.Float64
	}

	attempt := 0
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		d := p.Delay(attempt, jitter())
		attempt++
		return d, false
	})
	return retry.WithMaxRetries(uint64(p.maxRetries()-1), b)
}

// Invoke runs call until it succeeds or MaxRetries attempts have failed.
// Each call to Invoke starts from the first attempt.
func (p RetryPolicy) Invoke(ctx context.Context, call func(ctx context.Context) (Response, error)) (Response, error) {
	var (
		resp     Response
		lastErr  error
		attempts int
	)
	maxRetries := p.maxRetries()
	b := p.backoff()

	err := retry.Do(ctx, onRetry(b, p, maxRetries, &attempts, &lastErr), func(ctx context.Context) error {
		attempts++
		r, err := call(ctx)
		if err != nil {
			lastErr = err
			return retry.RetryableError(err)
		}
		resp = r
		return nil
	})
	if err == nil {
		return resp, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return Response{}, fmt.Errorf("model call aborted after %d attempts: %w", attempts, err)
	}
	if lastErr == nil {
		lastErr = err
	}
	return Response{}, &ExhaustedRetriesError{Attempts: attempts, Err: lastErr}
}

// onRetry wraps b so the OnRetry hook sees each scheduled delay.
func onRetry(b retry.Backoff, p RetryPolicy, maxRetries int, attempts *int, lastErr *error) retry.Backoff {
	if p.OnRetry == nil {
		return b
	}
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if !stop {
			p.OnRetry(*attempts, maxRetries, d, *lastErr)
		}
		return d, stop
	})
}
