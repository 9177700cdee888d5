package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// Ensure Aggregator implements the interface.
var _ driving.Aggregator = (*Aggregator)(nil)

// Aggregator fans a scope out to every connected service and merges the
// results. It never fails as a whole.
type Aggregator struct {
	registry  *ConnectorRegistry
	tokens    driving.TokenLifecycle
	store     driven.CredentialStore
	providers driven.TokenProviderFactory
	now       func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(
	registry *ConnectorRegistry,
	tokens driving.TokenLifecycle,
	store driven.CredentialStore,
	providers driven.TokenProviderFactory,
) *Aggregator {
	return &Aggregator{
		registry:  registry,
		tokens:    tokens,
		store:     store,
		providers: providers,
		now:       time.Now,
	}
}

// serviceOutcome is the result of one service's fetch.
type serviceOutcome struct {
	items []domain.ProjectDataItem
	meta  domain.ServiceFetchMetadata
	err   error
}

// Aggregate fetches from every connected service concurrently. Items are
// merged in registration order regardless of completion order; failures
// become error entries and the failing service contributes no items.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, scope domain.ProjectScope) *domain.ProjectDataBundle {
	bundle := domain.NewProjectDataBundle(a.now())

	connected, err := a.store.ListServices(ctx, userID)
	if err != nil {
		bundle.Errors = append(bundle.Errors, &domain.ServiceError{
			ServiceID: "credential-store",
			Err:       fmt.Errorf("%w: list services: %w", domain.ErrCredential, err),
		})
		return bundle
	}

	services, unknown := a.registry.Order(connected)
	for _, id := range unknown {
		logger.Warn("skipping %s: no connector registered", id)
	}
	bundle.Services = services

	outcomes := make([]serviceOutcome, len(services))
	var wg sync.WaitGroup
	for i, serviceID := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = a.fetchService(ctx, userID, serviceID, scope)
		}()
	}
	wg.Wait()

	for i, serviceID := range services {
		out := outcomes[i]
		bundle.PerService[serviceID] = out.meta
		if out.err != nil {
			logger.Warn("%s fetch failed: %v", serviceID, out.err)
			bundle.Errors = append(bundle.Errors, &domain.ServiceError{ServiceID: serviceID, Err: out.err})
			continue
		}
		bundle.Items = append(bundle.Items, out.items...)
	}
	logger.Debug("aggregated %d items from %d services (%d failed)",
		len(bundle.Items), len(services), len(bundle.Errors))
	return bundle
}

// fetchService validates credentials and runs one connector. A panic in
// the connector is reported as a transport failure of that service only.
func (a *Aggregator) fetchService(ctx context.Context, userID, serviceID string, scope domain.ProjectScope) (out serviceOutcome) {
	start := a.now()
	out.meta = domain.ServiceFetchMetadata{ServiceID: serviceID}
	defer func() {
		if r := recover(); r != nil {
			out.items = nil
			out.err = fmt.Errorf("%w: connector panic: %v", domain.ErrTransport, r)
		}
		out.meta.Duration = a.now().Sub(start)
		if out.err != nil {
			out.meta.Errors = append(out.meta.Errors, out.err.Error())
		}
	}()

	if !a.tokens.EnsureValid(ctx, userID, serviceID) {
		cause := a.tokens.LastError(userID, serviceID)
		if cause == nil {
			cause = errors.New("no valid token")
		}
		if !errors.Is(cause, domain.ErrCredential) && !errors.Is(cause, domain.ErrConfiguration) &&
			!errors.Is(cause, domain.ErrTransport) {
			cause = fmt.Errorf("%w: %w", domain.ErrCredential, cause)
		}
		out.err = cause
		return out
	}

	connector, err := a.registry.Create(serviceID, userID, a.providers.TokenProvider(userID, serviceID))
	if err != nil {
		out.err = fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		return out
	}
	defer connector.Close()

	result, err := connector.Fetch(ctx, scope)
	if err != nil {
		if domain.ErrorKindOf(err) == domain.ErrorKindUnknown {
			err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		out.err = err
		return out
	}
	if result == nil {
		result = &domain.ServiceFetchResult{}
	}

	items := result.Items
	if len(items) > scope.ResultCap {
		items = items[:scope.ResultCap]
	}
	out.items = items
	out.meta = result.Metadata
	out.meta.ServiceID = serviceID
	out.meta.Count = len(items)
	return out
}
