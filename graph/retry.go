package graph

import (
	"context"
	"fmt"
	"math"
	"time"
)

const maxDelay = time.Duration(math.MaxInt64)

// BackoffStrategy selects how the delay grows between retries.
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	LinearBackoff
	ExponentialBackoff
)

// RetryPolicy defines how failed nodes are retried. The zero value retries nothing.
type RetryPolicy struct {
	MaxRetries int
	Backoff    BackoffStrategy
	BaseDelay  time.Duration
	// MaxDelay caps the computed delay when positive.
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries all errors.
	Retryable func(error) bool
}

// Delay returns the wait before retry number attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	switch p.Backoff {
	case LinearBackoff:
		if p.BaseDelay > 0 && time.Duration(attempt) > maxDelay/p.BaseDelay {
			d = maxDelay
		} else {
			d = p.BaseDelay * time.Duration(attempt)
		}
	case ExponentialBackoff:
		// doubling saturates instead of overflowing
		d = p.BaseDelay
		for i := 1; i < attempt && d > 0 && d < maxDelay; i++ {
			if d > maxDelay/2 {
				d = maxDelay
			} else {
				d *= 2
			}
		}
	default:
		d = p.BaseDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p *RetryPolicy) shouldRetry(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// runWithRetry calls fn once, then again for each retry the policy allows.
func runWithRetry[S any](ctx context.Context, policy *RetryPolicy, fn NodeFunc[S], state S) (S, error) {
	out, err := fn(ctx, state)
	if err == nil || policy == nil || policy.MaxRetries <= 0 {
		return out, err
	}

	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		if !policy.shouldRetry(err) {
			return out, err
		}
		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		out, err = fn(ctx, state)
		if err == nil {
			return out, nil
		}
	}
	return out, fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, err)
}
