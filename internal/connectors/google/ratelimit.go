package google

import (
	"time"

	"github.com/custodia-labs/casebrief/internal/connectors"
)

// ServiceType identifies a Google API for quota purposes.
type ServiceType string

const (
	ServiceGmail    ServiceType = "gmail"
	ServiceDrive    ServiceType = "google-drive"
	ServiceCalendar ServiceType = "google-calendar"
)

// retryAfterDefault is the pause after a 429 without Retry-After.
const retryAfterDefault = time.Minute

// Quota is a sustained request rate and burst.
type Quota struct {
	PerSecond float64
	Burst     int
}

// quotas stay well under Google's per-user limits. Gmail's message fan-out
// is the heaviest caller.
var quotas = map[ServiceType]Quota{
	ServiceGmail:    {PerSecond: 5, Burst: 10},
	ServiceDrive:    {PerSecond: 8, Burst: 10},
	ServiceCalendar: {PerSecond: 5, Burst: 10},
}

// NewLimiter returns a throttle for service, using the Gmail quota for
// unknown services. Share one per service across connectors.
func NewLimiter(service ServiceType) *connectors.Throttle {
	q, ok := quotas[service]
	if !ok {
		q = quotas[ServiceGmail]
	}
	return NewLimiterWithQuota(q)
}

// NewLimiterWithQuota returns a throttle with an explicit quota.
func NewLimiterWithQuota(q Quota) *connectors.Throttle {
	return connectors.NewThrottle(q.PerSecond, q.Burst, retryAfterDefault)
}
