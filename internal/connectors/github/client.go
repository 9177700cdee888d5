package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// DefaultTimeout is the per-request HTTP timeout.
const DefaultTimeout = 30 * time.Second

// searchResultLimit is the most results the search API will page through.
const searchResultLimit = 1000

// Options override the API endpoint and transport, mainly for tests and
// GitHub Enterprise.
type Options struct {
	// BaseURL is the REST API root, e.g. "https://ghe.example.com/api/v3/".
	BaseURL string
	// HTTPClient supplies the base transport. The token is layered on top.
	HTTPClient *http.Client
}

// Client wraps the go-github client with rate limiting and error mapping.
type Client struct {
	tokens  driven.TokenProvider
	opts    Options
	limiter *RateLimiter
}

// NewClient creates a client. limiter may be nil.
func NewClient(tokens driven.TokenProvider, opts Options, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	return &Client{tokens: tokens, opts: opts, limiter: limiter}
}

// github builds a go-github client carrying the provider's current token.
func (c *Client) github(ctx context.Context) (*gh.Client, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		if domain.ErrorKindOf(err) == domain.ErrorKindUnknown {
			return nil, fmt.Errorf("%w: github: get token: %w", domain.ErrCredential, err)
		}
		return nil, err
	}

	var base http.RoundTripper = http.DefaultTransport
	if c.opts.HTTPClient != nil && c.opts.HTTPClient.Transport != nil {
		base = c.opts.HTTPClient.Transport
	}
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		},
		Timeout: DefaultTimeout,
	}

	client := gh.NewClient(hc)
	if c.opts.BaseURL != "" {
		raw := c.opts.BaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: github: base url: %w", domain.ErrConfiguration, err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// SearchIssues pages through issue search results, most recently updated
// first, until limit issues are collected. It also returns the total
// match count the API reported.
func (c *Client) SearchIssues(ctx context.Context, query string, limit int) ([]*gh.Issue, int, error) {
	client, err := c.github(ctx)
	if err != nil {
		return nil, 0, err
	}

	limit = min(limit, searchResultLimit)
	opts := &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: min(limit, maxPerPage)},
	}

	var issues []*gh.Issue
	total := 0
	for len(issues) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}

		result, resp, err := client.Search.Issues(ctx, query, opts)
		if resp != nil {
			c.limiter.Observe(resp.Response)
		}
		if err != nil {
			return nil, 0, classify(err, "github: search issues", c.limiter)
		}

		total = result.GetTotal()
		issues = append(issues, result.Issues...)
		if resp.NextPage == 0 || len(result.Issues) == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if len(issues) > limit {
		issues = issues[:limit]
	}
	return issues, total, nil
}
