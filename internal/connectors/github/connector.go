package github

import (
	"context"
	"strings"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// ServiceID identifies the GitHub connector.
const ServiceID = "github"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Scopes are the OAuth scopes the connector needs. "repo" covers private
// repositories' issues.
var Scopes = []string{"repo", "read:user"}

// Connector searches the issues and pull requests a user can see.
type Connector struct {
	tokens driven.TokenProvider
	cfg    Config
	client *Client
}

// New creates a GitHub connector. limiter may be nil.
func New(tokens driven.TokenProvider, cfg Config, opts Options, limiter *RateLimiter) *Connector {
	return &Connector{
		tokens: tokens,
		cfg:    cfg,
		client: NewClient(tokens, opts, limiter),
	}
}

// Builder returns a driven.ConnectorBuilder whose connectors share one
// rate limiter.
func Builder(cfg Config, opts Options) driven.ConnectorBuilder {
	limiter := NewRateLimiter()
	return func(_ string, tokens driven.TokenProvider) (driven.Connector, error) {
		return New(tokens, cfg, opts, limiter), nil
	}
}

func (c *Connector) ServiceID() string                      { return ServiceID }
func (c *Connector) Capabilities() domain.ServiceCapability { return domain.CapTicket }
func (c *Connector) Scopes() []string                       { return Scopes }
func (c *Connector) IsConnected(ctx context.Context) bool    { return c.tokens.IsAuthenticated(ctx) }
func (c *Connector) IsExpired(ctx context.Context) bool      { return c.tokens.IsExpired(ctx) }
func (c *Connector) Close() error                           { return nil }

// Fetch runs one issue search for the scope. A scope with neither
// keywords nor GitHub logins would match every visible issue, so it
// returns an empty result instead.
func (c *Connector) Fetch(ctx context.Context, scope domain.ProjectScope) (*domain.ServiceFetchResult, error) {
	if r := connectors.NotConnected(ctx, ServiceID, c.tokens); r != nil {
		return r, nil
	}

	query := BuildQuery(scope, c.cfg)
	if len(scope.Keywords) == 0 && !hasLogin(scope.Participants) {
		r := connectors.Empty(ServiceID, connectors.NoteNoKeywords)
		r.Metadata.Query = query
		return r, nil
	}

	issues, total, err := c.client.SearchIssues(ctx, query, scope.ResultCap)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ProjectDataItem, 0, len(issues))
	for _, issue := range issues {
		items = append(items, IssueToItem(issue, c.cfg.BodyChars))
	}

	meta := domain.ServiceFetchMetadata{
		ServiceID: ServiceID,
		Count:     len(items),
		Query:     query,
	}
	if total > len(items) {
		meta.Note = "more results available than the result cap"
	}
	return &domain.ServiceFetchResult{Items: items, Metadata: meta}, nil
}

func hasLogin(participants []string) bool {
	for _, p := range participants {
		if p != "" && !strings.Contains(p, "@") {
			return true
		}
	}
	return false
}
