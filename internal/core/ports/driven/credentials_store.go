package driven

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// CredentialStore persists service credentials keyed by (user, service).
type CredentialStore interface {
	// Load returns the credential for one user and service.
	// Returns nil and no error if the user never connected the service.
	Load(ctx context.Context, userID, serviceID string) (*domain.ServiceCredential, error)

	// Save creates or replaces a credential.
	Save(ctx context.Context, userID string, cred domain.ServiceCredential) error

	// Delete removes a credential. Deleting a missing credential is not an error.
	Delete(ctx context.Context, userID, serviceID string) error

	// ListServices returns the services a user has credentials for, sorted.
	ListServices(ctx context.Context, userID string) ([]string, error)

	// ListUsers returns every user holding at least one credential, sorted.
	ListUsers(ctx context.Context) ([]string, error)
}
