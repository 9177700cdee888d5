// Package auth supplies connectors with access tokens read from the
// credential store.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure the provider and factory implement their interfaces.
var (
	_ driven.TokenProvider        = (*CredentialTokenProvider)(nil)
	_ driven.TokenProviderFactory = (*Factory)(nil)
)

// CredentialTokenProvider serves the stored access token for one user and
// service. Every call reads the store, so tokens refreshed by the
// lifecycle manager are picked up immediately.
type CredentialTokenProvider struct {
	userID    string
	serviceID string
	store     driven.CredentialStore
	now       func() time.Time
}

// NewCredentialTokenProvider creates a provider for one (user, service) pair.
func NewCredentialTokenProvider(userID, serviceID string, store driven.CredentialStore) *CredentialTokenProvider {
	return &CredentialTokenProvider{
		userID:    userID,
		serviceID: serviceID,
		store:     store,
		now:       time.Now,
	}
}

// GetToken returns the stored access token.
func (p *CredentialTokenProvider) GetToken(ctx context.Context) (string, error) {
	cred, err := p.store.Load(ctx, p.userID, p.serviceID)
	if err != nil {
		return "", fmt.Errorf("%w: load %s credential: %w", domain.ErrCredential, p.serviceID, err)
	}
	if cred == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrNotConnected, p.serviceID)
	}
	if cred.AccessToken == "" {
		return "", fmt.Errorf("%w: %s credential has no access token", domain.ErrCredential, p.serviceID)
	}
	return cred.AccessToken, nil
}

// IsAuthenticated reports whether a credential with an access token exists.
func (p *CredentialTokenProvider) IsAuthenticated(ctx context.Context) bool {
	cred, err := p.store.Load(ctx, p.userID, p.serviceID)
	return err == nil && cred != nil && cred.AccessToken != ""
}

// IsExpired reports whether the stored credential is past its expiry.
// A missing credential counts as expired.
func (p *CredentialTokenProvider) IsExpired(ctx context.Context) bool {
	cred, err := p.store.Load(ctx, p.userID, p.serviceID)
	if err != nil || cred == nil {
		return true
	}
	return cred.IsExpired(p.now())
}

// Factory creates credential-backed token providers.
type Factory struct {
	store driven.CredentialStore
}

// NewFactory creates a token provider factory.
func NewFactory(store driven.CredentialStore) *Factory {
	return &Factory{store: store}
}

// TokenProvider returns a provider scoped to one user and service.
func (f *Factory) TokenProvider(userID, serviceID string) driven.TokenProvider {
	return NewCredentialTokenProvider(userID, serviceID, f.store)
}
