package ratelimit

import (
	"context"
	"time"

	"htbwriteups/pkg/retry"
)

// Pacer decides whether to pause before an ID is processed
type Pacer interface {
	// Delay is how long Pace will block for the ID, zero when it will not.
	Delay(id int) time.Duration
	// Pace blocks when the ID calls for a pause. It reports whether it paused.
	Pace(ctx context.Context, id int) (bool, error)
}

// EveryN pauses for Interval before every ID that is a multiple of N,
// independently of what the server answered so far.
type EveryN struct {
	N        int
	Interval time.Duration
	Sleep    retry.Sleeper
}

// NewEveryN creates a pacer backed by retry.Wait
func NewEveryN(n int, interval time.Duration) *EveryN {
	return &EveryN{N: n, Interval: interval, Sleep: retry.Wait}
}

// FromConfig returns an EveryN pacer, or Nop when either setting disables pacing
func FromConfig(n int, interval time.Duration) Pacer {
	if n <= 0 || interval <= 0 {
		return Nop{}
	}
	return NewEveryN(n, interval)
}

// Due reports whether the ID triggers a pause
func (p *EveryN) Due(id int) bool {
	return p.N > 0 && p.Interval > 0 && id%p.N == 0
}

// Delay returns Interval for IDs that are due and zero otherwise
func (p *EveryN) Delay(id int) time.Duration {
	if !p.Due(id) {
		return 0
	}
	return p.Interval
}

// Pace sleeps when Due(id) holds
func (p *EveryN) Pace(ctx context.Context, id int) (bool, error) {
	if !p.Due(id) {
		return false, nil
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = retry.Wait
	}
	if err := sleep(ctx, p.Interval); err != nil {
		return true, err
	}
	return true, nil
}

// Nop never pauses. It is used when pacing is disabled in the configuration.
type Nop struct{}

func (Nop) Delay(int) time.Duration { return 0 }

func (Nop) Pace(ctx context.Context, id int) (bool, error) { return false, ctx.Err() }
