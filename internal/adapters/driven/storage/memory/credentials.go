package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
// Stored credentials are cloned on the way in and out.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]map[string]domain.ServiceCredential
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]map[string]domain.ServiceCredential),
	}
}

// Load returns a copy of the credential, or nil if absent.
func (s *CredentialStore) Load(_ context.Context, userID, serviceID string) (*domain.ServiceCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[userID][serviceID]
	if !ok {
		return nil, nil
	}
	out := cred.Clone()
	return &out, nil
}

// Save creates or replaces a credential.
func (s *CredentialStore) Save(_ context.Context, userID string, cred domain.ServiceCredential) error {
	if userID == "" || cred.ServiceID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds[userID] == nil {
		s.creds[userID] = make(map[string]domain.ServiceCredential)
	}
	s.creds[userID][cred.ServiceID] = cred.Clone()
	return nil
}

// Delete removes a credential.
func (s *CredentialStore) Delete(_ context.Context, userID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds[userID], serviceID)
	if len(s.creds[userID]) == 0 {
		delete(s.creds, userID)
	}
	return nil
}

// ListServices returns a user's connected services, sorted.
func (s *CredentialStore) ListServices(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.creds[userID]))
	for id := range s.creds[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ListUsers returns users holding credentials, sorted.
func (s *CredentialStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.creds))
	for id := range s.creds {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
