package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/connectors/google"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// stubTokens implements driven.TokenProvider for testing.
type stubTokens struct {
	token string
}

func (s stubTokens) GetToken(context.Context) (string, error) { return s.token, nil }
func (s stubTokens) IsAuthenticated(context.Context) bool      { return s.token != "" }
func (s stubTokens) IsExpired(context.Context) bool            { return false }

func testScope(t *testing.T) domain.ProjectScope {
	t.Helper()
	scope, err := domain.NewProjectScope(
		[]string{"Apollo", "launch plan"},
		[]string{"ana@acme.com"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		10,
	)
	require.NoError(t, err)
	return scope
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func fullMessage(id, thread string, labels ...string) *gmail.Message {
	return &gmail.Message{
		Id:           id,
		ThreadId:     thread,
		LabelIds:     labels,
		Snippet:      "snippet " + id,
		InternalDate: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Status " + id},
				{Name: "From", Value: "Ana <ana@acme.com>"},
				{Name: "To", Value: "bo@acme.com, Cy <cy@acme.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("Body of " + id)}},
				{MimeType: "application/pdf", Filename: "plan.pdf", Body: &gmail.MessagePartBody{AttachmentId: "a1"}},
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T, messages map[string]*gmail.Message, order []string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/users/me/messages"):
			queries = append(queries, r.URL.Query().Get("q"))
			refs := make([]*gmail.Message, 0, len(order))
			for _, id := range order {
				refs = append(refs, &gmail.Message{Id: id})
			}
			writeJSON(w, &gmail.ListMessagesResponse{Messages: refs})
		case strings.Contains(path, "/users/me/messages/"):
			id := path[strings.LastIndex(path, "/")+1:]
			assert.Equal(t, "full", r.URL.Query().Get("format"))
			msg, ok := messages[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				writeJSON(w, map[string]any{"error": map[string]any{"code": 404, "message": "gone"}})
				return
			}
			writeJSON(w, msg)
		default:
			t.Errorf("unexpected path %s", path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func newConnector(srvURL string, tokens stubTokens) *Connector {
	limiter := google.NewLimiterWithQuota(google.Quota{PerSecond: 1000, Burst: 100})
	return New(tokens, DefaultConfig(), google.Options{Endpoint: srvURL + "/"}, limiter)
}

func TestBuildQuery(t *testing.T) {
	got := BuildQuery(testScope(t))
	assert.Equal(t,
		`("Apollo" OR "launch plan") AND (from:ana@acme.com OR to:ana@acme.com) after:2024/01/01 before:2024/02/01`,
		got)
}

func TestBuildQuery_DatesOnly(t *testing.T) {
	scope, err := domain.NewProjectScope(nil, nil,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, "after:2024/03/01 before:2024/03/03", BuildQuery(scope))
}

func TestMessageToItem(t *testing.T) {
	item := MessageToItem(fullMessage("m1", "t1", "IMPORTANT"), 100)

	assert.Equal(t, ServiceID, item.ServiceID)
	assert.Equal(t, domain.CapEmail, item.Kind)
	p := item.Payload
	assert.Equal(t, "m1", p.ID)
	assert.Equal(t, "Status m1", p.Title)
	assert.Equal(t, "ana@acme.com", p.Sender)
	assert.Equal(t, []string{"bo@acme.com", "cy@acme.com"}, p.Recipients)
	assert.Equal(t, "Body of m1", p.Body)
	assert.Equal(t, 1, p.AttachmentCount)
	assert.Equal(t, "t1", p.ThreadID)
	assert.Equal(t, []string{"IMPORTANT"}, p.Labels)
	assert.Equal(t, 2024, p.Timestamp.Year())
	assert.Equal(t, "https://mail.google.com/mail/u/0/#all/m1", p.URL)
}

func TestMessageToItem_Fallbacks(t *testing.T) {
	msg := &gmail.Message{Id: "m2", Snippet: "just a snippet", Payload: &gmail.MessagePart{MimeType: "text/html"}}
	p := MessageToItem(msg, 100).Payload
	assert.Equal(t, "No Subject", p.Title)
	assert.Equal(t, "Unknown Sender", p.Sender)
	assert.Equal(t, "just a snippet", p.Body)
	assert.Empty(t, p.Recipients)
	assert.True(t, p.Timestamp.IsZero())
}

func TestConnector_Metadata(t *testing.T) {
	c := New(stubTokens{token: "tok"}, DefaultConfig(), google.Options{}, nil)
	assert.Equal(t, "gmail", c.ServiceID())
	assert.Equal(t, domain.CapEmail, c.Capabilities())
	assert.Contains(t, c.Scopes(), google.ScopeGmailRead)
	assert.True(t, c.IsConnected(context.Background()))
	assert.NoError(t, c.Close())
}

func TestConnector_Fetch(t *testing.T) {
	messages := map[string]*gmail.Message{
		"m1": fullMessage("m1", "t1", "INBOX"),
		"m2": fullMessage("m2", "t1", "SPAM"),
		"m3": fullMessage("m3", "t3", "STARRED"),
	}
	srv, queries := newServer(t, messages, []string{"m1", "m2", "m3", "missing"})

	result, err := newConnector(srv.URL, stubTokens{token: "tok"}).Fetch(context.Background(), testScope(t))
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "m1", result.Items[0].Payload.ID)
	assert.Equal(t, "m3", result.Items[1].Payload.ID)
	assert.Equal(t, 2, result.Metadata.Count)
	assert.Equal(t, BuildQuery(testScope(t)), result.Metadata.Query)
	require.Len(t, result.Metadata.Errors, 1)
	assert.Contains(t, result.Metadata.Errors[0], "missing")
	assert.Equal(t, []string{BuildQuery(testScope(t))}, *queries)
}

func TestConnector_FetchNotConnected(t *testing.T) {
	c := New(stubTokens{}, DefaultConfig(), google.Options{Endpoint: "http://127.0.0.1:1/"}, nil)

	result, err := c.Fetch(context.Background(), testScope(t))
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, connectors.NoteNotConnected, result.Metadata.Note)
}

func TestConnector_FetchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	_, err := newConnector(srv.URL, stubTokens{token: "tok"}).Fetch(context.Background(), testScope(t))
	assert.ErrorIs(t, err, domain.ErrCredential)
}

func TestBuilder(t *testing.T) {
	build := Builder(DefaultConfig(), google.Options{})
	c, err := build("u1", stubTokens{token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, ServiceID, c.ServiceID())
}
