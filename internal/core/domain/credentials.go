package domain

import (
	"maps"
	"slices"
	"time"
)

// DefaultRefreshBuffer is how far ahead of expiry a token is treated as stale.
const DefaultRefreshBuffer = 5 * time.Minute

// ServiceCredential stores one user's authentication state for one external
// service. Credentials are keyed by (user, service) and never shared.
type ServiceCredential struct {
	// ServiceID identifies the external service (e.g. "gmail").
	ServiceID string `json:"service_id"`
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// ExpiresAt is when the access token expires. Nil means unknown,
	// which is treated as already expired.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Scopes granted to the token.
	Scopes []string `json:"scopes,omitempty"`
	// ExtraData holds provider-specific fields returned with the token.
	ExtraData map[string]any `json:"extra_data,omitempty"`
	// ConnectedAt is when the service was first connected.
	ConnectedAt time.Time `json:"connected_at"`
	// UpdatedAt is when the credential was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsRefresh reports whether the token is within buffer of expiry at now.
// A credential without an expiry always needs refresh.
func (c *ServiceCredential) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-buffer))
}

// IsExpired reports whether the token has passed its expiry at now.
func (c *ServiceCredential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(*c.ExpiresAt)
}

// ExpiresIn returns the time left until expiry. ok is false when unknown.
func (c *ServiceCredential) ExpiresIn(now time.Time) (d time.Duration, ok bool) {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}

// HasRefreshToken returns true if a refresh token is available.
func (c *ServiceCredential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Clone returns a deep copy so callers never share mutable state.
func (c *ServiceCredential) Clone() ServiceCredential {
	out := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	out.Scopes = slices.Clone(c.Scopes)
	if c.ExtraData != nil {
		out.ExtraData = maps.Clone(c.ExtraData)
	}
	return out
}

// ApplyRefresh merges a refreshed token into a copy of c. Fields the
// refresh did not return keep their previous values.
func (c *ServiceCredential) ApplyRefresh(fresh *ServiceCredential, now time.Time) ServiceCredential {
	out := c.Clone()
	out.AccessToken = fresh.AccessToken
	out.ExpiresAt = nil
	if fresh.ExpiresAt != nil {
		t := *fresh.ExpiresAt
		out.ExpiresAt = &t
	}
	if fresh.RefreshToken != "" {
		out.RefreshToken = fresh.RefreshToken
	}
	if fresh.TokenType != "" {
		out.TokenType = fresh.TokenType
	}
	if len(fresh.Scopes) > 0 {
		out.Scopes = slices.Clone(fresh.Scopes)
	}
	for k, v := range fresh.ExtraData {
		if out.ExtraData == nil {
			out.ExtraData = make(map[string]any)
		}
		out.ExtraData[k] = v
	}
	out.UpdatedAt = now
	return out
}
