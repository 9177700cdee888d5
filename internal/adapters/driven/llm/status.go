package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// StatusError converts a non-2xx provider response into a classified
// error. It reads, but does not close, the body.
//
//   - 401, 403 and 404 mean a bad key or unknown model: ErrConfiguration
//   - 429 and 5xx are transient: ErrTransport (429 also ErrRateLimited)
//   - anything else is a rejected request: ErrGeneration
func StatusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s (status %d): %s", domain.ErrConfiguration, provider, resp.StatusCode, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s: %s", domain.ErrTransport, domain.ErrRateLimited, provider, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s (status %d): %s", domain.ErrTransport, provider, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: %s (status %d): %s", domain.ErrGeneration, provider, resp.StatusCode, msg)
	}
}

// errorMessage extracts a message from the common provider error shapes:
// {"error":{"message":...}} and {"error":"..."}.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}

// TransportError wraps a failure to reach the provider or to read its
// stream. Context cancellation passes through unwrapped.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, provider, err)
}
