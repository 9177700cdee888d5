package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// OAuth scopes requested by the Google connectors.
const (
	ScopeUserEmail    = "https://www.googleapis.com/auth/userinfo.email"
	ScopeGmailRead    = gmail.GmailReadonlyScope
	ScopeDriveRead    = drive.DriveReadonlyScope
	ScopeCalendarRead = calendar.CalendarReadonlyScope
)

// Options tune how Google API clients are built.
type Options struct {
	// Endpoint overrides the API base URL, e.g. for a test server.
	Endpoint string
	// HTTPClient is the base client the OAuth transport wraps.
	HTTPClient *http.Client
}

// clientOptions authenticates every request with the provider's current
// token. The OAuth transport is built here so that a custom base client
// keeps its transport.
func clientOptions(ctx context.Context, tokens driven.TokenProvider, opts Options) []option.ClientOption {
	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}
	client := &http.Client{
		Transport: &oauth2.Transport{Source: NewTokenSource(ctx, tokens), Base: base},
	}
	if opts.HTTPClient != nil {
		client.Timeout = opts.HTTPClient.Timeout
	}

	out := []option.ClientOption{option.WithHTTPClient(client)}
	if opts.Endpoint != "" {
		out = append(out, option.WithEndpoint(opts.Endpoint))
	}
	return out
}

// NewGmailService creates a Gmail API service.
func NewGmailService(ctx context.Context, tokens driven.TokenProvider, opts Options) (*gmail.Service, error) {
	return gmail.NewService(ctx, clientOptions(ctx, tokens, opts)...)
}

// NewDriveService creates a Google Drive API service.
func NewDriveService(ctx context.Context, tokens driven.TokenProvider, opts Options) (*drive.Service, error) {
	return drive.NewService(ctx, clientOptions(ctx, tokens, opts)...)
}

// NewCalendarService creates a Google Calendar API service.
func NewCalendarService(ctx context.Context, tokens driven.TokenProvider, opts Options) (*calendar.Service, error) {
	return calendar.NewService(ctx, clientOptions(ctx, tokens, opts)...)
}
