package services

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// ConnectorType describes a registered connector.
type ConnectorType struct {
	// ID is the service identifier, e.g. "gmail".
	ID string
	// Name is the human-readable name.
	Name string
	// Description explains what the connector reads.
	Description string
	// Capabilities are the item kinds the connector produces.
	Capabilities domain.ServiceCapability
	// Scopes are the OAuth scopes the connector needs.
	Scopes []string
	// Build constructs the connector for one user.
	Build driven.ConnectorBuilder
}

// ConnectorRegistry maps service identifiers to connector types.
// Registration order is the order services are aggregated and reported in.
type ConnectorRegistry struct {
	mu    sync.RWMutex
	order []string
	types map[string]ConnectorType
}

// NewConnectorRegistry creates an empty registry.
func NewConnectorRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		types: make(map[string]ConnectorType),
	}
}

// Register adds a connector type. Registering an existing ID replaces it
// in place and keeps its original position.
func (r *ConnectorRegistry) Register(t ConnectorType) error {
	if t.ID == "" {
		return fmt.Errorf("%w: connector type requires an ID", domain.ErrInvalidInput)
	}
	if t.Build == nil {
		return fmt.Errorf("%w: connector type %s has no builder", domain.ErrInvalidInput, t.ID)
	}
	t.Scopes = slices.Clone(t.Scopes)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.types[t.ID] = t
	return nil
}

// Get returns a connector type by ID.
func (r *ConnectorRegistry) Get(id string) (ConnectorType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// List returns all connector types in registration order.
func (r *ConnectorRegistry) List() []ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnectorType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

// Create builds a connector for one user.
func (r *ConnectorRegistry) Create(id, userID string, tokens driven.TokenProvider) (driven.Connector, error) {
	t, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownService, id)
	}
	c, err := t.Build(userID, tokens)
	if err != nil {
		return nil, fmt.Errorf("build %s connector: %w", id, err)
	}
	return c, nil
}

// Order filters ids to registered services and sorts them by registration
// order. Unregistered IDs are returned separately, sorted.
func (r *ConnectorRegistry) Order(ids []string) (registered, unknown []string) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	for _, id := range r.order {
		if _, ok := want[id]; ok {
			registered = append(registered, id)
			delete(want, id)
		}
	}
	r.mu.RUnlock()

	for id := range want {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	return registered, unknown
}

// AllScopes returns the sorted union of scopes for the given services, or
// for every registered service when none are given.
func (r *ConnectorRegistry) AllScopes(ids ...string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(ids) == 0 {
		ids = r.order
	}
	seen := make(map[string]struct{})
	var out []string
	for _, id := range ids {
		for _, s := range r.types[id].Scopes {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
