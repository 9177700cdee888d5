package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// stubTokens implements driven.TokenProvider for testing.
type stubTokens struct {
	token string
}

func (s stubTokens) GetToken(context.Context) (string, error) { return s.token, nil }
func (s stubTokens) IsAuthenticated(context.Context) bool      { return s.token != "" }
func (s stubTokens) IsExpired(context.Context) bool            { return false }

func testScope(t *testing.T, keywords, participants []string, resultCap int) domain.ProjectScope {
	t.Helper()
	scope, err := domain.NewProjectScope(keywords, participants,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		resultCap)
	require.NoError(t, err)
	return scope
}

func fastLimiter() *RateLimiter {
	return NewRateLimiterWithRate(1000, 100)
}

func issueJSON(n int) string {
	return fmt.Sprintf(`{
		"number": %d,
		"title": "Launch blocker %d",
		"body": "Details\n\nmore",
		"state": "open",
		"user": {"login": "ana"},
		"assignees": [{"login": "bo"}],
		"labels": [{"name": "p1"}],
		"comments": 4,
		"updated_at": "2024-01-1%dT10:00:00Z",
		"html_url": "https://github.com/acme/api/issues/%d",
		"repository_url": "https://api.github.com/repos/acme/api"
	}`, n, n, n%10, n)
}

func TestBuildQuery(t *testing.T) {
	scope := testScope(t, []string{"launch", "go live"}, []string{"ana", "bo@acme.com"}, 10)

	q := BuildQuery(scope, Config{Qualifiers: []string{"org:acme"}})

	assert.Equal(t, `("launch" OR "go live") involves:ana updated:2024-01-01..2024-01-31 org:acme`, q)
}

func TestBuildQuery_SingleKeyword(t *testing.T) {
	q := BuildQuery(testScope(t, []string{"launch"}, nil, 10), DefaultConfig())
	assert.Equal(t, `"launch" updated:2024-01-01..2024-01-31`, q)
}

func TestIssueToItem(t *testing.T) {
	issue := &gh.Issue{
		Number:           gh.Ptr(7),
		Title:            gh.Ptr("Fix login"),
		Body:             gh.Ptr("Steps\nto reproduce"),
		State:            gh.Ptr("closed"),
		User:             &gh.User{Login: gh.Ptr("ana")},
		Assignees:        []*gh.User{{Login: gh.Ptr("bo")}},
		Labels:           []*gh.Label{{Name: gh.Ptr("bug")}},
		Comments:         gh.Ptr(2),
		UpdatedAt:        &gh.Timestamp{Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		HTMLURL:          gh.Ptr("https://github.com/acme/api/pull/7"),
		RepositoryURL:    gh.Ptr("https://api.github.com/repos/acme/api"),
		PullRequestLinks: &gh.PullRequestLinks{URL: gh.Ptr("https://api.github.com/repos/acme/api/pulls/7")},
	}

	item := IssueToItem(issue, 100)

	assert.Equal(t, ServiceID, item.ServiceID)
	assert.Equal(t, domain.CapTicket, item.Kind)
	p := item.Payload
	assert.Equal(t, "acme/api#7", p.ID)
	assert.Equal(t, "[acme/api#7] Fix login", p.Title)
	assert.Equal(t, "ana", p.Sender)
	assert.Equal(t, []string{"bo"}, p.Recipients)
	assert.Equal(t, []string{"CLOSED", "PULL_REQUEST", "bug"}, p.Labels)
	assert.Equal(t, 3, p.ThreadSize)
	assert.Equal(t, "Steps to reproduce", p.Body)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), p.Timestamp)
}

func TestConnector_Fetch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/issues", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Contains(t, r.URL.Query().Get("q"), `"launch"`)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "29")
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 1 {
			w.Header().Set("Link", fmt.Sprintf(`<%s/search/issues?page=2>; rel="next"`, srv.URL))
			fmt.Fprintf(w, `{"total_count": 4, "items": [%s, %s]}`, issueJSON(1), issueJSON(2))
			return
		}
		fmt.Fprintf(w, `{"total_count": 4, "items": [%s, %s]}`, issueJSON(3), issueJSON(4))
	}))
	defer srv.Close()

	limiter := fastLimiter()
	c := New(stubTokens{token: "tok"}, DefaultConfig(), Options{BaseURL: srv.URL}, limiter)

	result, err := c.Fetch(context.Background(), testScope(t, []string{"launch"}, nil, 3))
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "acme/api#3", result.Items[2].Payload.ID)
	assert.Equal(t, 5, result.Items[0].Payload.ThreadSize)
	assert.Equal(t, 3, result.Metadata.Count)
	assert.NotEmpty(t, result.Metadata.Note)
	assert.Equal(t, 29, limiter.Remaining())
}

func TestConnector_FetchNotConnected(t *testing.T) {
	c := New(stubTokens{}, DefaultConfig(), Options{}, fastLimiter())

	result, err := c.Fetch(context.Background(), testScope(t, []string{"launch"}, nil, 10))
	require.NoError(t, err)
	assert.Equal(t, connectors.NoteNotConnected, result.Metadata.Note)
}

func TestConnector_FetchWithoutSearchTerms(t *testing.T) {
	c := New(stubTokens{token: "tok"}, DefaultConfig(), Options{BaseURL: "http://127.0.0.1:1"}, fastLimiter())

	result, err := c.Fetch(context.Background(), testScope(t, nil, []string{"a@x.com"}, 10))
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, connectors.NoteNoKeywords, result.Metadata.Note)
}

func TestConnector_FetchErrors(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		want    []error
	}{
		{
			name:   "bad credentials",
			status: http.StatusUnauthorized,
			body:   `{"message": "Bad credentials"}`,
			want:   []error{domain.ErrCredential},
		},
		{
			name:   "rate limited",
			status: http.StatusForbidden,
			headers: map[string]string{
				"X-RateLimit-Limit":     "30",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     reset,
			},
			body: `{"message": "API rate limit exceeded"}`,
			want: []error{domain.ErrTransport, domain.ErrRateLimited},
		},
		{
			name:   "invalid query",
			status: http.StatusUnprocessableEntity,
			body:   `{"message": "Validation Failed"}`,
			want:   []error{domain.ErrConfiguration},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `{"message": "Bad gateway"}`,
			want:   []error{domain.ErrTransport},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(stubTokens{token: "tok"}, DefaultConfig(), Options{BaseURL: srv.URL}, fastLimiter())

			_, err := c.Fetch(context.Background(), testScope(t, []string{"launch"}, nil, 10))
			require.Error(t, err)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestRateLimiter_Observe(t *testing.T) {
	r := fastLimiter()
	assert.Equal(t, -1, r.Remaining())

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "12")
	resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	r.Observe(resp)
	assert.Equal(t, 12, r.Remaining())
	assert.True(t, r.PausedUntil().IsZero())
	require.NoError(t, r.Wait(context.Background()))

	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	resp.Header.Set("X-RateLimit-Remaining", "1")
	resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	r.Observe(resp)
	assert.Equal(t, 1, r.Remaining())
	assert.True(t, reset.Equal(r.PausedUntil()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_ObserveIgnoresMissingHeaders(t *testing.T) {
	r := fastLimiter()
	r.Observe(nil)
	r.Observe(&http.Response{Header: http.Header{}})
	assert.Equal(t, -1, r.Remaining())
}
