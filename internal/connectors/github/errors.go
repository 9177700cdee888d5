package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// defaultSecondaryBackoff applies when a secondary limit carries no Retry-After.
const defaultSecondaryBackoff = time.Minute

// classify maps a go-github error onto the domain error kinds:
//
//   - primary or secondary rate limits: ErrTransport + ErrRateLimited
//   - 401 and 403: ErrCredential
//   - 404 and 422 (bad query or qualifier): ErrConfiguration
//   - everything else: ErrTransport
func classify(err error, op string, limiter *RateLimiter) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		if limiter != nil {
			limiter.PauseUntil(rateErr.Rate.Reset.Time)
		}
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrTransport, domain.ErrRateLimited, op, err)
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if limiter != nil {
			limiter.PauseFor(abuseErr.GetRetryAfter())
		}
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrTransport, domain.ErrRateLimited, op, err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", domain.ErrCredential, op, err)
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, op, err)
		}
	}

	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
}
