package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// quotaReasons are 403 reasons that mean "slow down" rather than "denied".
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// Classify maps a Google API error onto the domain taxonomy:
//
//   - 401, and 403 for anything but quota: ErrCredential
//   - 400 and 404: ErrConfiguration (bad query or resource)
//   - 429, quota 403s and 5xx: ErrTransport, also ErrRateLimited for quota
//
// Rate limit responses also pause limiter. Token provider
// errors and context cancellation pass through.
func Classify(err error, op string, limiter *connectors.Throttle) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrNotConnected) {
		return fmt.Errorf("%w: %s: %w", domain.ErrCredential, op, err)
	}
	if domain.ErrorKindOf(err) != domain.ErrorKindUnknown {
		return fmt.Errorf("%s: %w", op, err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests || (gerr.Code == http.StatusForbidden && isQuota(gerr)):
		if limiter != nil {
			limiter.PauseFor(retryAfter(gerr))
		}
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrTransport, domain.ErrRateLimited, op, err)
	case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %w", domain.ErrCredential, op, err)
	case gerr.Code == http.StatusBadRequest, gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	}
}

func isQuota(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

// retryAfter reads a Retry-After header in seconds; zero when absent.
func retryAfter(gerr *googleapi.Error) time.Duration {
	if gerr.Header == nil {
		return 0
	}
	seconds, err := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
