package driving

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// TokenLifecycle keeps service credentials valid ahead of use.
type TokenLifecycle interface {
	// EnsureValid refreshes the credential if it is within the refresh
	// buffer of expiry. Returns false when no usable token exists after
	// the attempt; the reason is available from LastError.
	EnsureValid(ctx context.Context, userID, serviceID string) bool

	// EnsureAll runs EnsureValid for every connected service of a user.
	EnsureAll(ctx context.Context, userID string) map[string]bool

	// LastError returns the most recent refresh failure for a credential.
	LastError(userID, serviceID string) error

	// CleanupStale deletes credentials that expired long ago and cannot
	// be refreshed. Returns the removed service IDs.
	CleanupStale(ctx context.Context, userID string) ([]string, error)
}

// ConnectionService reports and manages a user's service connections.
type ConnectionService interface {
	// Status reports every registered service plus any connected service
	// without a registered connector.
	Status(ctx context.Context, userID string) ([]domain.ServiceConnectionInfo, error)

	// Connect stores a credential obtained outside the application.
	Connect(ctx context.Context, userID string, cred domain.ServiceCredential) error

	// Disconnect removes a service credential.
	Disconnect(ctx context.Context, userID, serviceID string) error

	// Scopes returns the union of OAuth scopes for the given services,
	// or every registered service when none are given.
	Scopes(serviceIDs ...string) []string
}
