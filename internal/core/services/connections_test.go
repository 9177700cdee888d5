package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

func TestConnectionService_Status(t *testing.T) {
	registry := NewConnectorRegistry()
	registerMock(registry, &mockConnector{id: "gmail"})
	registerMock(registry, &mockConnector{id: "drive"})
	registerMock(registry, &mockConnector{id: "github"})

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	valid := now.Add(time.Hour)
	expired := now.Add(-time.Hour)

	store := newMockCredentialStore()
	store.put("alice", domain.ServiceCredential{ServiceID: "gmail", AccessToken: "a", ExpiresAt: &valid})
	store.put("alice", domain.ServiceCredential{ServiceID: "drive", AccessToken: "a", ExpiresAt: &expired})
	store.put("alice", domain.ServiceCredential{ServiceID: "legacy", AccessToken: "a", ExpiresAt: &valid})

	svc := NewConnectionService(registry, store, &mockTokenLifecycle{})
	svc.now = func() time.Time { return now }

	infos, err := svc.Status(context.Background(), "alice")
	require.NoError(t, err)

	got := map[string]domain.ConnectionStatus{}
	var order []string
	for _, info := range infos {
		got[info.ServiceID] = info.Status
		order = append(order, info.ServiceID)
	}
	assert.Equal(t, []string{"gmail", "drive", "github", "legacy"}, order)
	assert.Equal(t, domain.ConnectionConnected, got["gmail"])
	assert.Equal(t, domain.ConnectionExpired, got["drive"])
	assert.Equal(t, domain.ConnectionDisconnected, got["github"])
}

func TestConnectionService_ConnectAndDisconnect(t *testing.T) {
	registry := NewConnectorRegistry()
	registerMock(registry, &mockConnector{id: "gmail"})
	store := newMockCredentialStore()
	svc := NewConnectionService(registry, store, nil)
	ctx := context.Background()

	err := svc.Connect(ctx, "alice", domain.ServiceCredential{ServiceID: "gmail", AccessToken: "tok", RefreshToken: "r"})
	require.NoError(t, err)
	first, ok := store.get("alice", "gmail")
	require.True(t, ok)
	assert.False(t, first.ConnectedAt.IsZero())

	// Reconnecting keeps the original connection time.
	require.NoError(t, svc.Connect(ctx, "alice", domain.ServiceCredential{ServiceID: "gmail", AccessToken: "tok2"}))
	second, _ := store.get("alice", "gmail")
	assert.Equal(t, first.ConnectedAt, second.ConnectedAt)
	assert.Equal(t, "tok2", second.AccessToken)

	assert.ErrorIs(t, svc.Connect(ctx, "alice", domain.ServiceCredential{ServiceID: "jira", AccessToken: "x"}), domain.ErrUnknownService)
	assert.ErrorIs(t, svc.Connect(ctx, "alice", domain.ServiceCredential{ServiceID: "gmail"}), domain.ErrInvalidInput)

	require.NoError(t, svc.Disconnect(ctx, "alice", "gmail"))
	_, ok = store.get("alice", "gmail")
	assert.False(t, ok)
}

func TestModelRegistry(t *testing.T) {
	r := NewModelRegistry()
	r.Register(ModelBinding{Name: "claude-3-haiku", ModelID: "claude-3-haiku-20240307", Backend: &mockBackend{}})
	r.Register(ModelBinding{Name: "gpt-4", ModelID: "gpt-4-1106-preview", Backend: &mockBackend{}, Temperature: 0.7})

	b, err := r.Resolve("claude-3-haiku")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemperature, b.Temperature)
	assert.Equal(t, DefaultMaxTokens, b.MaxTokens)

	_, err = r.Resolve("gpt-5")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	models := r.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "claude-3-haiku", models[0].Name)
	assert.Equal(t, "mock", models[0].Provider)
	assert.Equal(t, 0.7, models[1].Temperature)
}

func TestPromptBuilder_SystemPrompt(t *testing.T) {
	b := NewPromptBuilder(newMockPromptStore())

	tests := []struct {
		tpl    domain.Template
		custom string
		want   string
	}{
		{domain.TemplateComprehensive, "", "BASE"},
		{domain.TemplateMarketing, "", "BASE\n\nMARKETING"},
		{domain.TemplateProduct, "  ", "BASE\n\nPRODUCT"},
		{domain.TemplateCustom, "Be brief.", "BASE\n\nAdditional Instructions:\nBe brief."},
	}
	for _, tt := range tests {
		t.Run(string(tt.tpl), func(t *testing.T) {
			got, err := b.SystemPrompt(tt.tpl, tt.custom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptBuilder_MissingPrompt(t *testing.T) {
	store := newMockPromptStore()
	delete(store.prompts, "system_base")

	_, err := NewPromptBuilder(store).SystemPrompt(domain.TemplateComprehensive, "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPromptBuilder_UserPromptPreambleIsLiteral(t *testing.T) {
	store := newMockPromptStore()
	store.prompts[driven.PromptUserPreamble] = "Summarise 100% of the work on {project}; see {project} notes."
	bundle := domain.NewProjectDataBundle(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	got, err := NewPromptBuilder(store).UserPrompt("Apollo", bundle)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Summarise 100% of the work on Apollo; see Apollo notes.\n"))
	assert.NotContains(t, got, "%!")

	store.prompts[driven.PromptUserPreamble] = "Write it up."
	got, err = NewPromptBuilder(store).UserPrompt("Apollo", bundle)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Write it up.\n"))
	assert.NotContains(t, got, "EXTRA")
}

func TestPromptBuilder_UserPrompt(t *testing.T) {
	bundle := domain.NewProjectDataBundle(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	bundle.Items = []domain.ProjectDataItem{
		{ServiceID: "drive", Kind: domain.CapDocument, Payload: domain.ItemPayload{Title: "Roadmap.docx", Body: "draft"}},
		{ServiceID: "github", Kind: domain.CapTicket, Payload: domain.ItemPayload{Title: "Fix login", Labels: []string{"bug"}}},
	}
	bundle.PerService["drive"] = domain.ServiceFetchMetadata{Count: 1}
	bundle.Errors = []*domain.ServiceError{{ServiceID: "gmail", Err: domain.ErrCredential}}

	got, err := NewPromptBuilder(newMockPromptStore()).UserPrompt("", bundle)
	require.NoError(t, err)

	assert.Contains(t, got, "Write a case study for this project.")
	assert.Contains(t, got, "## Project Documents\n\nDocument 1 (drive):\nTitle: Roadmap.docx")
	assert.Contains(t, got, "## Issues and Tickets")
	assert.Contains(t, got, "Labels: bug")
	assert.NotContains(t, got, "## Email Communications")
	assert.Contains(t, got, "- drive: 1 items fetched")
	assert.Contains(t, got, "- gmail: unavailable (credential)")
}
