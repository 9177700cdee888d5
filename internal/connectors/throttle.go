package connectors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces requests to one upstream API: a token bucket for the
// steady rate, plus a pause window the API can impose through 429s or
// quota headers. Pauses only ever extend.
type Throttle struct {
	bucket   *rate.Limiter
	fallback time.Duration

	mu    sync.Mutex
	until time.Time
}

// NewThrottle allows perSecond requests with the given burst. fallback is
// the pause applied by PauseFor when the API gave no retry hint.
func NewThrottle(perSecond float64, burst int, fallback time.Duration) *Throttle {
	return &Throttle{
		bucket:   rate.NewLimiter(rate.Limit(perSecond), burst),
		fallback: fallback,
	}
}

// Wait blocks until the pause has ended and a token is available.
func (t *Throttle) Wait(ctx context.Context) error {
	if d := time.Until(t.PausedUntil()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.bucket.Wait(ctx)
}

// Allow takes a token without blocking. It is false during a pause.
func (t *Throttle) Allow() bool {
	if time.Now().Before(t.PausedUntil()) {
		return false
	}
	return t.bucket.Allow()
}

// PauseFor pauses for d, or for the fallback when d is not positive.
func (t *Throttle) PauseFor(d time.Duration) {
	if d <= 0 {
		d = t.fallback
	}
	t.PauseUntil(time.Now().Add(d))
}

// PauseUntil pauses until at unless a longer pause is in force.
func (t *Throttle) PauseUntil(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at.After(t.until) {
		t.until = at
	}
}

// PausedUntil returns the end of the current pause; zero or past when
// requests may flow.
func (t *Throttle) PausedUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.until
}
