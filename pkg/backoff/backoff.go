// Package backoff computes retry delays for automated remediation.
package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes an exponential delay curve.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff is a Policy with its jitter fraction fixed. One Backoff is drawn per
// issue so that Delay is a pure function of the attempt number: monotone
// non-decreasing and never above Max*(1+Jitter).
type Backoff struct {
	policy   Policy
	fraction float64
}

// New draws the jitter fraction from r. A nil r uses the global source.
func New(p Policy, r *rand.Rand) *Backoff {
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	if p.Max < p.Initial {
		p.Max = p.Initial
	}

	jitter := math.Max(0, p.Jitter)

	var f float64
	if r != nil {
		f = r.Float64()
	} else {
		f = rand.Float64()
	}

	return &Backoff{policy: p, fraction: f * jitter}
}

// Delay returns the wait before retry number attempt (0-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	base := float64(b.policy.Initial) * math.Pow(b.policy.Multiplier, float64(attempt))
	if base > float64(b.policy.Max) || math.IsInf(base, 1) || math.IsNaN(base) {
		base = float64(b.policy.Max)
	}

	return time.Duration(base * (1 + b.fraction))
}

// Ceiling is the largest delay Delay can ever return for p.
func Ceiling(p Policy) time.Duration {
	maxDelay := p.Max
	if maxDelay < p.Initial {
		maxDelay = p.Initial
	}

	return time.Duration(float64(maxDelay) * (1 + math.Max(0, p.Jitter)))
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// Retry calls fn up to attempts times. The first call is immediate; retry n
// (0-based) waits Delay(n) first. fn receives the 1-based attempt number. Retry
// returns the number of calls made and the last error, or the context error
// when cancelled while waiting.
func Retry(ctx context.Context, b *Backoff, attempts int, sleep SleepFunc, fn func(attempt int) error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	if sleep == nil {
		sleep = Sleep
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if serr := sleep(ctx, b.Delay(attempt-2)); serr != nil {
				return attempt - 1, serr
			}
		}

		if err = fn(attempt); err == nil {
			return attempt, nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return attempt, permanent.err
		}

		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
	}

	return attempts, err
}
