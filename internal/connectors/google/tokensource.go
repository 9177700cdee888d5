package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// tokenSource adapts a driven.TokenProvider to oauth2.TokenSource.
// It never refreshes; the token lifecycle manager has already done so
// before the connector runs.
type tokenSource struct {
	ctx      context.Context
	provider driven.TokenProvider
}

// NewTokenSource creates an oauth2.TokenSource backed by provider.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, provider: provider}
}

// Token returns the provider's current access token.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	if t.provider == nil {
		return nil, fmt.Errorf("%w: no token provider", domain.ErrCredential)
	}
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
