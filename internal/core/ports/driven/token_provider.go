package driven

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// TokenRefresher exchanges a refresh token for a new access token.
// It never writes credentials; persisting the result is the caller's job.
type TokenRefresher interface {
	// Refresh returns the token fields issued by the provider. Errors wrap
	// domain.ErrCredential for rejected grants, domain.ErrTransport for
	// network failures and domain.ErrConfiguration for unknown services.
	Refresh(ctx context.Context, cred domain.ServiceCredential) (*domain.ServiceCredential, error)
}

// TokenProvider provides access tokens for authenticated API calls.
//
// Providers never refresh. The token lifecycle manager refreshes ahead of
// every fetch and the scheduler refreshes proactively in the background.
type TokenProvider interface {
	// GetToken returns the current access token.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if a credential exists for the service.
	IsAuthenticated(ctx context.Context) bool

	// IsExpired returns true if the credential is past its expiry.
	IsExpired(ctx context.Context) bool
}

// TokenProviderFactory creates token providers scoped to one user and service.
type TokenProviderFactory interface {
	TokenProvider(userID, serviceID string) TokenProvider
}
