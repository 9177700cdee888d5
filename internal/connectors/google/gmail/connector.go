// Package gmail fetches email-like project items from Gmail search.
package gmail

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/connectors/google"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Scopes are the OAuth scopes the connector needs.
var Scopes = []string{google.ScopeUserEmail, google.ScopeGmailRead}

// Connector searches one user's mailbox.
type Connector struct {
	tokens  driven.TokenProvider
	cfg     Config
	opts    google.Options
	limiter *connectors.Throttle
}

// New creates a Gmail connector. limiter may be nil.
func New(tokens driven.TokenProvider, cfg Config, opts google.Options, limiter *connectors.Throttle) *Connector {
	if limiter == nil {
		limiter = google.NewLimiter(google.ServiceGmail)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Connector{tokens: tokens, cfg: cfg, opts: opts, limiter: limiter}
}

// Builder returns a driven.ConnectorBuilder whose connectors share one
// rate limiter.
func Builder(cfg Config, opts google.Options) driven.ConnectorBuilder {
	limiter := google.NewLimiter(google.ServiceGmail)
	return func(_ string, tokens driven.TokenProvider) (driven.Connector, error) {
		return New(tokens, cfg, opts, limiter), nil
	}
}

// ServiceID returns "gmail".
func (c *Connector) ServiceID() string { return ServiceID }

// Capabilities reports email items.
func (c *Connector) Capabilities() domain.ServiceCapability { return domain.CapEmail }

// Scopes returns the OAuth scopes the connector needs.
func (c *Connector) Scopes() []string { return Scopes }

// IsConnected returns true if the user holds a Gmail credential.
func (c *Connector) IsConnected(ctx context.Context) bool { return c.tokens.IsAuthenticated(ctx) }

// IsExpired returns true if the Gmail credential is expired.
func (c *Connector) IsExpired(ctx context.Context) bool { return c.tokens.IsExpired(ctx) }

// Close releases nothing; the API client holds no open resources.
func (c *Connector) Close() error { return nil }

// Fetch searches for messages matching scope, newest first.
func (c *Connector) Fetch(ctx context.Context, scope domain.ProjectScope) (*domain.ServiceFetchResult, error) {
	if r := connectors.NotConnected(ctx, ServiceID, c.tokens); r != nil {
		return r, nil
	}

	svc, err := google.NewGmailService(ctx, c.tokens, c.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: gmail client: %w", domain.ErrConfiguration, err)
	}

	query := BuildQuery(scope)
	ids, err := c.listMessageIDs(ctx, svc, query, scope.ResultCap)
	if err != nil {
		return nil, err
	}

	messages, errs := c.getMessages(ctx, svc, ids)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]domain.ProjectDataItem, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if !c.cfg.IncludeSpamTrash && isSpamOrTrash(msg.LabelIds) {
			continue
		}
		items = append(items, MessageToItem(msg, c.cfg.BodyChars))
	}

	return &domain.ServiceFetchResult{
		Items: items,
		Metadata: domain.ServiceFetchMetadata{
			ServiceID: ServiceID,
			Count:     len(items),
			Query:     query,
			Errors:    errs,
		},
	}, nil
}

// listMessageIDs pages through messages.list until limit IDs are found.
func (c *Connector) listMessageIDs(ctx context.Context, svc *gmail.Service, query string, limit int) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Users.Messages.List("me").
			Q(query).
			IncludeSpamTrash(c.cfg.IncludeSpamTrash).
			MaxResults(int64(min(limit-len(ids), maxPageSize))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, google.Classify(err, "gmail: list messages", c.limiter)
		}
		for _, m := range resp.Messages {
			if len(ids) == limit {
				break
			}
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

// getMessages fetches full messages concurrently, keeping list order.
// Failed messages are skipped and reported.
func (c *Connector) getMessages(ctx context.Context, svc *gmail.Service, ids []string) ([]*gmail.Message, []string) {
	out := make([]*gmail.Message, len(ids))
	var mu sync.Mutex
	var errs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			msg, err := svc.Users.Messages.Get("me", id).Format("full").Context(gctx).Do()
			if err != nil {
				mu.Lock()
				errs = append(errs, google.Classify(err, "gmail: get message "+id, c.limiter).Error())
				mu.Unlock()
				return nil
			}
			out[i] = msg
			return nil
		})
	}
	_ = g.Wait()
	return out, errs
}
