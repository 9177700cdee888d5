// Package drive fetches document-like project items from Google Drive.
package drive

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/connectors/google"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// ServiceID identifies the Drive connector.
const ServiceID = "google-drive"

// previewConcurrency bounds parallel export calls.
const previewConcurrency = 4

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Scopes are the OAuth scopes the connector needs.
var Scopes = []string{google.ScopeUserEmail, google.ScopeDriveRead}

// Connector searches one user's Drive.
type Connector struct {
	tokens  driven.TokenProvider
	cfg     Config
	opts    google.Options
	limiter *connectors.Throttle
}

// New creates a Drive connector. limiter may be nil.
func New(tokens driven.TokenProvider, cfg Config, opts google.Options, limiter *connectors.Throttle) *Connector {
	if limiter == nil {
		limiter = google.NewLimiter(google.ServiceDrive)
	}
	return &Connector{tokens: tokens, cfg: cfg, opts: opts, limiter: limiter}
}

// Builder returns a driven.ConnectorBuilder whose connectors share one
// rate limiter.
func Builder(cfg Config, opts google.Options) driven.ConnectorBuilder {
	limiter := google.NewLimiter(google.ServiceDrive)
	return func(_ string, tokens driven.TokenProvider) (driven.Connector, error) {
		return New(tokens, cfg, opts, limiter), nil
	}
}

func (c *Connector) ServiceID() string                      { return ServiceID }
func (c *Connector) Capabilities() domain.ServiceCapability { return domain.CapDocument }
func (c *Connector) Scopes() []string                       { return Scopes }
func (c *Connector) IsConnected(ctx context.Context) bool    { return c.tokens.IsAuthenticated(ctx) }
func (c *Connector) IsExpired(ctx context.Context) bool      { return c.tokens.IsExpired(ctx) }
func (c *Connector) Close() error                           { return nil }

// Fetch lists files matching scope, most recently modified first, and
// attaches a text preview of each.
func (c *Connector) Fetch(ctx context.Context, scope domain.ProjectScope) (*domain.ServiceFetchResult, error) {
	if r := connectors.NotConnected(ctx, ServiceID, c.tokens); r != nil {
		return r, nil
	}

	svc, err := google.NewDriveService(ctx, c.tokens, c.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: drive client: %w", domain.ErrConfiguration, err)
	}

	query := BuildQuery(scope)
	files, err := c.listFiles(ctx, svc, query, scope.ResultCap)
	if err != nil {
		return nil, err
	}

	previews, errs := c.previews(ctx, svc, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]domain.ProjectDataItem, len(files))
	for i, f := range files {
		items[i] = FileToItem(f, previews[i])
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

// listFiles pages through files.list until limit wanted files are found.
func (c *Connector) listFiles(ctx context.Context, svc *drive.Service, query string, limit int) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for len(files) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Files.List().
			Q(query).
			Fields(listFields).
			OrderBy("modifiedTime desc").
			PageSize(int64(min(limit, maxPageSize))).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, google.Classify(err, "drive: list files", c.limiter)
		}
		for _, f := range resp.Files {
			if len(files) == limit {
				break
			}
			if Wanted(f, c.cfg) {
				files = append(files, f)
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return files, nil
}

// previews exports file content concurrently. A failed export leaves the
// preview empty and is reported.
func (c *Connector) previews(ctx context.Context, svc *drive.Service, files []*drive.File) ([]string, []string) {
	out := make([]string, len(files))
	if c.cfg.PreviewChars <= 0 {
		return out, nil
	}

	var mu sync.Mutex
	var errs []string
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			preview, err := fetchPreview(gctx, svc, f, c.cfg.PreviewChars)
			if err != nil {
				mu.Lock()
				errs = append(errs, google.Classify(err, "drive: preview "+f.Name, c.limiter).Error())
				mu.Unlock()
				return nil
			}
			out[i] = preview
			return nil
		})
	}
	_ = g.Wait()
	return out, errs
}
