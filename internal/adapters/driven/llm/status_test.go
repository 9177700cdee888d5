package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`, domain.ErrConfiguration, "invalid key"},
		{"forbidden", http.StatusForbidden, "", domain.ErrConfiguration, "Forbidden"},
		{"unknown model", http.StatusNotFound, `{"error":"model not found"}`, domain.ErrConfiguration, "model not found"},
		{"rate limited", http.StatusTooManyRequests, "slow down", domain.ErrRateLimited, "slow down"},
		{"server error", http.StatusBadGateway, "", domain.ErrTransport, "Bad Gateway"},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"context too long"}}`, domain.ErrGeneration, "context too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StatusError("test", response(tt.status, tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestStatusError_RateLimitIsTransport(t *testing.T) {
	err := StatusError("test", response(http.StatusTooManyRequests, ""))
	assert.Equal(t, domain.ErrorKindTransport, domain.ErrorKindOf(err))
}

func TestTransportError(t *testing.T) {
	err := TransportError("test", errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")

	wrapped := fmt.Errorf("do: %w", context.Canceled)
	assert.Same(t, wrapped, TransportError("test", wrapped))
	assert.NotErrorIs(t, TransportError("test", context.DeadlineExceeded), domain.ErrTransport)
}
