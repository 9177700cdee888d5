package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/casebrief/internal/connectors"
)

const (
	// searchRate keeps under the 30 requests/minute search quota.
	searchRate = 0.45

	// minBuffer is the remaining quota below which requests pause until reset.
	minBuffer = 2

	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// RateLimiter is a throttle that also follows the quota GitHub reports in
// its response headers.
type RateLimiter struct {
	*connectors.Throttle

	mu        sync.Mutex
	remaining int
}

// NewRateLimiter creates a limiter tuned for the search API.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithRate(searchRate, 1)
}

// NewRateLimiterWithRate creates a limiter with an explicit bucket.
func NewRateLimiterWithRate(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		Throttle:  connectors.NewThrottle(perSecond, burst, defaultSecondaryBackoff),
		remaining: -1,
	}
}

// Observe records a response's quota headers. When the quota is nearly
// spent, requests pause until the reported reset.
func (r *RateLimiter) Observe(resp *http.Response) {
	if resp == nil {
		return
	}
	remaining, err := strconv.Atoi(resp.Header.Get(headerRateRemaining))
	if err != nil {
		return
	}
	r.mu.Lock()
	r.remaining = remaining
	r.mu.Unlock()

	if remaining >= minBuffer {
		return
	}
	if reset, err := strconv.ParseInt(resp.Header.Get(headerRateReset), 10, 64); err == nil {
		r.PauseUntil(time.Unix(reset, 0))
	}
}

// Remaining returns the last reported quota, or -1 before any response.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}
