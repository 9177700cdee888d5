package driven

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Connector fetches project data from one external service for one user.
type Connector interface {
	// ServiceID returns the service this connector reads.
	ServiceID() string

	// Capabilities reports the item kinds the connector produces.
	Capabilities() domain.ServiceCapability

	// Scopes returns the OAuth scopes the connector needs.
	Scopes() []string

	// IsConnected returns true if the user holds a credential for the service.
	IsConnected(ctx context.Context) bool

	// IsExpired returns true if that credential is expired.
	IsExpired(ctx context.Context) bool

	// Fetch returns items matching scope, at most scope.ResultCap of them.
	// A disconnected service yields an empty result with an explanatory
	// note. Errors are reserved for unexpected transport failures.
	Fetch(ctx context.Context, scope domain.ProjectScope) (*domain.ServiceFetchResult, error)

	// Close releases any resources held by the connector.
	Close() error
}

// ConnectorBuilder constructs a connector for one user.
type ConnectorBuilder func(userID string, tokens TokenProvider) (Connector, error)
