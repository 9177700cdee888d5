package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
)

// Ensure ConnectionService implements the interface.
var _ driving.ConnectionService = (*ConnectionService)(nil)

// ConnectionService reports and manages service connections.
type ConnectionService struct {
	registry *ConnectorRegistry
	store    driven.CredentialStore
	tokens   driving.TokenLifecycle
	now      func() time.Time
}

// NewConnectionService creates a connection service.
func NewConnectionService(registry *ConnectorRegistry, store driven.CredentialStore, tokens driving.TokenLifecycle) *ConnectionService {
	return &ConnectionService{
		registry: registry,
		store:    store,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Status reports registered services in registration order, followed by
// connected services that have no registered connector.
func (s *ConnectionService) Status(ctx context.Context, userID string) ([]domain.ServiceConnectionInfo, error) {
	connected, err := s.store.ListServices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	_, unknown := s.registry.Order(connected)

	now := s.now()
	var out []domain.ServiceConnectionInfo
	for _, t := range s.registry.List() {
		info, err := s.describe(ctx, userID, t.ID, t.Name, now)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	for _, id := range unknown {
		info, err := s.describe(ctx, userID, id, id, now)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *ConnectionService) describe(ctx context.Context, userID, serviceID, name string, now time.Time) (domain.ServiceConnectionInfo, error) {
	cred, err := s.store.Load(ctx, userID, serviceID)
	if err != nil {
		return domain.ServiceConnectionInfo{}, fmt.Errorf("load %s credential: %w", serviceID, err)
	}
	var lastErr error
	if s.tokens != nil {
		lastErr = s.tokens.LastError(userID, serviceID)
	}
	return domain.DescribeConnection(serviceID, name, cred, lastErr, now), nil
}

// Connect stores a credential obtained outside the application.
func (s *ConnectionService) Connect(ctx context.Context, userID string, cred domain.ServiceCredential) error {
	if userID == "" || cred.ServiceID == "" {
		return fmt.Errorf("%w: user and service are required", domain.ErrInvalidInput)
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return fmt.Errorf("%w: credential has no token", domain.ErrInvalidInput)
	}
	if _, ok := s.registry.Get(cred.ServiceID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownService, cred.ServiceID)
	}

	now := s.now()
	existing, err := s.store.Load(ctx, userID, cred.ServiceID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	switch {
	case existing != nil && !existing.ConnectedAt.IsZero():
		cred.ConnectedAt = existing.ConnectedAt
	case cred.ConnectedAt.IsZero():
		cred.ConnectedAt = now
	}
	cred.UpdatedAt = now
	if err := s.store.Save(ctx, userID, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Disconnect removes a service credential.
func (s *ConnectionService) Disconnect(ctx context.Context, userID, serviceID string) error {
	if err := s.store.Delete(ctx, userID, serviceID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Scopes returns the union of OAuth scopes for the given services.
func (s *ConnectionService) Scopes(serviceIDs ...string) []string {
	return s.registry.AllScopes(serviceIDs...)
}
