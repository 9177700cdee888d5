// Package calendar fetches event-like project items from Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/connectors/google"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// ServiceID identifies the Calendar connector.
const ServiceID = "google-calendar"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Scopes are the OAuth scopes the connector needs.
var Scopes = []string{google.ScopeUserEmail, google.ScopeCalendarRead}

// Connector searches one user's calendar.
type Connector struct {
	tokens  driven.TokenProvider
	cfg     Config
	opts    google.Options
	limiter *connectors.Throttle
}

// New creates a Calendar connector. limiter may be nil.
func New(tokens driven.TokenProvider, cfg Config, opts google.Options, limiter *connectors.Throttle) *Connector {
	if limiter == nil {
		limiter = google.NewLimiter(google.ServiceCalendar)
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	return &Connector{tokens: tokens, cfg: cfg, opts: opts, limiter: limiter}
}

// Builder returns a driven.ConnectorBuilder whose connectors share one
// rate limiter.
func Builder(cfg Config, opts google.Options) driven.ConnectorBuilder {
	limiter := google.NewLimiter(google.ServiceCalendar)
	return func(_ string, tokens driven.TokenProvider) (driven.Connector, error) {
		return New(tokens, cfg, opts, limiter), nil
	}
}

func (c *Connector) ServiceID() string                      { return ServiceID }
func (c *Connector) Capabilities() domain.ServiceCapability { return domain.CapEvent }
func (c *Connector) Scopes() []string                       { return Scopes }
func (c *Connector) IsConnected(ctx context.Context) bool    { return c.tokens.IsAuthenticated(ctx) }
func (c *Connector) IsExpired(ctx context.Context) bool      { return c.tokens.IsExpired(ctx) }
func (c *Connector) Close() error                           { return nil }

// Fetch runs one events.list query per search term inside the scope's
// window, merges the results by event ID and returns them newest first.
func (c *Connector) Fetch(ctx context.Context, scope domain.ProjectScope) (*domain.ServiceFetchResult, error) {
	if r := connectors.NotConnected(ctx, ServiceID, c.tokens); r != nil {
		return r, nil
	}

	svc, err := google.NewCalendarService(ctx, c.tokens, c.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar client: %w", domain.ErrConfiguration, err)
	}

	terms := SearchTerms(scope)
	seen := make(map[string]bool)
	var events []*calendar.Event
	for _, term := range terms {
		found, err := c.search(ctx, svc, scope, term)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if !wanted(e) || seen[e.Id] {
				continue
			}
			seen[e.Id] = true
			events = append(events, e)
		}
	}

	items := make([]domain.ProjectDataItem, len(events))
	for i, e := range events {
		items[i] = EventToItem(e, c.cfg.BodyChars)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Payload.Timestamp.After(items[j].Payload.Timestamp)
	})
	if len(items) > scope.ResultCap {
		items = items[:scope.ResultCap]
	}

	return &domain.ServiceFetchResult{
		Items: items,
		Metadata: domain.ServiceFetchMetadata{
			ServiceID: ServiceID,
			Count:     len(items),
			Query:     strings.Join(terms, " | "),
		},
	}, nil
}

// search lists up to scope.ResultCap events matching one term.
func (c *Connector) search(ctx context.Context, svc *calendar.Service, scope domain.ProjectScope, term string) ([]*calendar.Event, error) {
	var out []*calendar.Event
	pageToken := ""
	for len(out) < scope.ResultCap {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Events.List(c.cfg.CalendarID).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(int64(min(scope.ResultCap, maxPageSize))).
			Context(ctx)
		if term != "" {
			call = call.Q(term)
		}
		if !scope.DateRange.Start.IsZero() {
			call = call.TimeMin(scope.DateRange.Start.UTC().Format(time.RFC3339))
		}
		if !scope.DateRange.End.IsZero() {
			call = call.TimeMax(scope.DateRange.End.UTC().Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, google.Classify(err, "calendar: list events", c.limiter)
		}
		out = append(out, resp.Items...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}
