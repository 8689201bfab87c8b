package retry

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

// Policy describes a capped exponential backoff schedule. Delays grow as
// Factor^attempt scaled by Coefficient and never exceed MaxDelay.
type Policy struct {
	MaxAttempts int
	Factor      float64
	Coefficient time.Duration
	MaxDelay    time.Duration
}

// Default matches the Canvas API schedule: eight attempts with delays of
// 0.25*2^n seconds capped at one minute.
func Default() Policy {
	return Policy{
		MaxAttempts: 8,
		Factor:      2.0,
		Coefficient: 250 * time.Millisecond,
		MaxDelay:    60 * time.Second,
	}
}

// Backoff returns the delay before retrying after the given 1-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(p.Factor, float64(attempt)) * float64(p.Coefficient))
	if d < 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RateLimitDelay derives the wait after a 429 response. A numeric Retry-After
// header wins (plus one second of slack); otherwise the delay grows like
// Backoff but on a whole-second scale.
func (p Policy) RateLimitDelay(retryAfter string, attempt int) time.Duration {
	if s, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && s >= 0 {
		return time.Duration(s+1) * time.Second
	}
	d := time.Duration(math.Pow(p.Factor, float64(attempt))) * time.Second
	if d < 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleeper blocks for the given duration. Production code uses Wait; tests
// substitute a recorder so no real time passes.
type Sleeper func(ctx context.Context, d time.Duration) error

// Wait sleeps on the real clock, returning early when ctx is cancelled.
func Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
