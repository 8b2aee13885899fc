package toolmgr

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// jitterFraction spreads retry delays by ±20% so that servers failing in
// lockstep do not reconnect in lockstep.
const jitterFraction = 0.2

// backoffDelay returns the pause before retry number attempt (zero-based):
// min(base*2^attempt, max) with ±20% jitter. The unjittered delay is
// non-decreasing in attempt; the first retry waits roughly base.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(base) * math.Pow(2, float64(attempt))
	if delay > float64(max) {
		delay = float64(max)
	}
	jitter := delay * jitterFraction * (2*rand.Float64() - 1)
	return time.Duration(delay + jitter)
}

// sleepCtx pauses for d or until ctx is done, reporting whether the full
// pause elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
