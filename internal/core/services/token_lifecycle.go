package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// Ensure TokenLifecycleManager implements the interface.
var _ driving.TokenLifecycle = (*TokenLifecycleManager)(nil)

// TokenLifecycleManager refreshes service credentials before they expire.
//
// Refreshes of one (user, service) credential are collapsed into a single
// in-flight call. Callers that arrive while a refresh runs wait for it and
// share its outcome, so a refresh token is never spent twice.
type TokenLifecycleManager struct {
	store     driven.CredentialStore
	refresher driven.TokenRefresher
	buffer    time.Duration
	now       func() time.Time

	flights singleflight.Group

	mu         sync.RWMutex
	lastErrors map[string]error
}

// NewTokenLifecycleManager creates a manager with the default refresh buffer.
func NewTokenLifecycleManager(store driven.CredentialStore, refresher driven.TokenRefresher) *TokenLifecycleManager {
	return &TokenLifecycleManager{
		store:      store,
		refresher:  refresher,
		buffer:     domain.DefaultRefreshBuffer,
		now:        time.Now,
		lastErrors: make(map[string]error),
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *TokenLifecycleManager) SetClock(now func() time.Time) {
	m.now = now
}

// SetRefreshBuffer changes how far ahead of expiry tokens are refreshed.
func (m *TokenLifecycleManager) SetRefreshBuffer(d time.Duration) {
	m.buffer = d
}

// EnsureValid returns true if the credential is usable, refreshing it first
// when it is within the buffer of expiry. A failed refresh leaves the stored
// credential untouched.
func (m *TokenLifecycleManager) EnsureValid(ctx context.Context, userID, serviceID string) bool {
	cred, err := m.store.Load(ctx, userID, serviceID)
	if err != nil {
		m.recordError(userID, serviceID, fmt.Errorf("%w: load credential: %w", domain.ErrCredential, err))
		return false
	}
	if cred == nil {
		m.recordError(userID, serviceID, fmt.Errorf("%w: %s", domain.ErrNotConnected, serviceID))
		return false
	}
	if !cred.NeedsRefresh(m.now(), m.buffer) {
		m.recordError(userID, serviceID, nil)
		return true
	}

	key := userID + "\x00" + serviceID
	_, err, shared := m.flights.Do(key, func() (any, error) {
		return nil, m.refresh(ctx, userID, serviceID)
	})
	if shared {
		logger.Debug("token refresh for %s/%s shared with concurrent caller", userID, serviceID)
	}
	m.recordError(userID, serviceID, err)
	return err == nil
}

// refresh runs inside the single flight for its credential.
func (m *TokenLifecycleManager) refresh(ctx context.Context, userID, serviceID string) error {
	// Re-read inside the flight: a refresh that finished just before this
	// one started has already stored a fresh token.
	cred, err := m.store.Load(ctx, userID, serviceID)
	if err != nil {
		return fmt.Errorf("%w: load credential: %w", domain.ErrCredential, err)
	}
	if cred == nil {
		return fmt.Errorf("%w: %s", domain.ErrNotConnected, serviceID)
	}
	now := m.now()
	if !cred.NeedsRefresh(now, m.buffer) {
		return nil
	}
	if !cred.HasRefreshToken() {
		return fmt.Errorf("%w: %s token expired and has no refresh token", domain.ErrCredential, serviceID)
	}
	if m.refresher == nil {
		return fmt.Errorf("%w: no token refresher configured", domain.ErrConfiguration)
	}

	logger.Debug("refreshing %s token for %s (refresh token %s)", serviceID, userID, logger.MaskToken(cred.RefreshToken))
	fresh, err := m.refresher.Refresh(ctx, *cred)
	if err != nil {
		logger.Warn("refresh %s for %s failed: %v", serviceID, userID, err)
		return fmt.Errorf("refresh %s: %w", serviceID, err)
	}

	updated := cred.ApplyRefresh(fresh, m.now())
	if err := m.store.Save(ctx, userID, updated); err != nil {
		return fmt.Errorf("%w: save refreshed credential: %w", domain.ErrCredential, err)
	}
	logger.Debug("refreshed %s token for %s", serviceID, userID)
	return nil
}

// EnsureAll validates every connected service of a user concurrently.
// Services are independent; one failure does not affect the others.
func (m *TokenLifecycleManager) EnsureAll(ctx context.Context, userID string) map[string]bool {
	services, err := m.store.ListServices(ctx, userID)
	if err != nil {
		logger.Warn("list services for %s: %v", userID, err)
		return map[string]bool{}
	}

	results := make(map[string]bool, len(services))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, serviceID := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := m.EnsureValid(ctx, userID, serviceID)
			mu.Lock()
			results[serviceID] = ok
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// LastError returns the outcome of the most recent EnsureValid call.
func (m *TokenLifecycleManager) LastError(userID, serviceID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErrors[userID+"\x00"+serviceID]
}

func (m *TokenLifecycleManager) recordError(userID, serviceID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "\x00" + serviceID
	if err == nil {
		delete(m.lastErrors, key)
		return
	}
	m.lastErrors[key] = err
}

// CleanupStale removes credentials that expired more than
// domain.StaleCredentialAge ago and carry no refresh token.
func (m *TokenLifecycleManager) CleanupStale(ctx context.Context, userID string) ([]string, error) {
	services, err := m.store.ListServices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	cutoff := m.now().Add(-domain.StaleCredentialAge)
	var removed []string
	var errs []error
	for _, serviceID := range services {
		cred, err := m.store.Load(ctx, userID, serviceID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", serviceID, err))
			continue
		}
		if cred == nil || cred.HasRefreshToken() || cred.ExpiresAt == nil || !cred.ExpiresAt.Before(cutoff) {
			continue
		}
		if err := m.store.Delete(ctx, userID, serviceID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", serviceID, err))
			continue
		}
		logger.Info("removed stale %s credential for %s", serviceID, userID)
		removed = append(removed, serviceID)
	}
	sort.Strings(removed)
	return removed, errors.Join(errs...)
}
