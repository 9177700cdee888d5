// Package oauth refreshes service credentials with the OAuth 2.0
// refresh_token grant.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure Refresher implements the interface.
var _ driven.TokenRefresher = (*Refresher)(nil)

// Refresher exchanges refresh tokens using a per-service oauth2.Config.
// It never persists results.
type Refresher struct {
	mu      sync.RWMutex
	configs map[string]*oauth2.Config
	client  *http.Client
	now     func() time.Time
}

// NewRefresher creates a refresher with no registered services.
func NewRefresher() *Refresher {
	return &Refresher{
		configs: make(map[string]*oauth2.Config),
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// SetHTTPClient replaces the client used for token requests.
func (r *Refresher) SetHTTPClient(c *http.Client) {
	r.client = c
}

// Register sets the OAuth client configuration for a service.
func (r *Refresher) Register(serviceID string, cfg *oauth2.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[serviceID] = cfg
}

// GoogleConfig returns a client configuration for Google APIs.
func GoogleConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// GitHubConfig returns a client configuration for GitHub.
func GitHubConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     github.Endpoint,
		Scopes:       scopes,
	}
}

// Refresh performs the refresh_token grant for cred's service.
func (r *Refresher) Refresh(ctx context.Context, cred domain.ServiceCredential) (*domain.ServiceCredential, error) {
	r.mu.RLock()
	cfg, ok := r.configs[cred.ServiceID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no OAuth client configured for %s", domain.ErrConfiguration, cred.ServiceID)
	}
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s has no refresh token", domain.ErrCredential, cred.ServiceID)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	// An expired seed token forces the source to hit the token endpoint.
	seed := &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		Expiry:       r.now().Add(-time.Hour),
	}
	tok, err := cfg.TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, classify(cred.ServiceID, err)
	}

	fresh := &domain.ServiceCredential{
		ServiceID:    cred.ServiceID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		fresh.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		fresh.ExtraData = map[string]any{"scope": scope}
	}
	return fresh, nil
}

// classify maps token endpoint failures onto the domain taxonomy. A
// response from the provider means the grant was rejected; anything else
// is a transport failure.
func classify(serviceID string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		code := re.ErrorCode
		if code == "" {
			code = http.StatusText(status)
		}
		if status >= 500 {
			return fmt.Errorf("%w: %s token endpoint: %s", domain.ErrTransport, serviceID, code)
		}
		return fmt.Errorf("%w: %s refresh rejected: %s", domain.ErrCredential, serviceID, code)
	}
	return fmt.Errorf("%w: %s refresh: %w", domain.ErrTransport, serviceID, err)
}
