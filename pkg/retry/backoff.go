package retry

import (
	"context"
	"math"
	"time"
)

// BackoffStrategy yields the wait that follows a rate-limited attempt
type BackoffStrategy interface {
	// NextDelay returns the delay to wait after the given (1-based) attempt
	NextDelay(attempt int) time.Duration
}

// Sleeper blocks for a duration or until the context is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Constant waits the same duration after every attempt
type Constant time.Duration

func (c Constant) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(c)
}

// Growing waits Base after the first attempt and multiplies the wait by
// Factor after each further one. Cap, when set, bounds every wait.
type Growing struct {
	Base   time.Duration
	Factor float64
	Cap    time.Duration
}

func (g Growing) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || g.Base <= 0 {
		return 0
	}

	factor := g.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(g.Base) * math.Pow(factor, float64(attempt-1))
	if g.Cap > 0 && d > float64(g.Cap) {
		return g.Cap
	}
	return time.Duration(d)
}

// MaxRateLimitDelay bounds a single wait between retries
const MaxRateLimitDelay = 5 * time.Minute

// NewRateLimitBackoff returns Constant(base) for a multiplier of 1 or less
// and a capped Growing strategy otherwise.
func NewRateLimitBackoff(base time.Duration, multiplier float64) BackoffStrategy {
	if multiplier <= 1 {
		return Constant(base)
	}
	return Growing{Base: base, Factor: multiplier, Cap: MaxRateLimitDelay}
}

// Wait sleeps for delay. It returns early with the context error once ctx
// is done, and reports a done context even for a zero delay.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
