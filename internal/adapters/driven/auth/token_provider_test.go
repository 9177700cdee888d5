package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

type failingStore struct {
	*memory.CredentialStore
}

func (failingStore) Load(context.Context, string, string) (*domain.ServiceCredential, error) {
	return nil, errors.New("disk on fire")
}

func TestCredentialTokenProvider(t *testing.T) {
	store := memory.NewCredentialStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exp := now.Add(10 * time.Minute)
	require.NoError(t, store.Save(ctx, "alice", domain.ServiceCredential{ServiceID: "gmail", AccessToken: "tok", ExpiresAt: &exp}))

	p := NewFactory(store).TokenProvider("alice", "gmail").(*CredentialTokenProvider)
	p.now = func() time.Time { return now }

	tok, err := p.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.True(t, p.IsAuthenticated(ctx))
	assert.False(t, p.IsExpired(ctx))

	p.now = func() time.Time { return now.Add(time.Hour) }
	assert.True(t, p.IsExpired(ctx))
}

func TestCredentialTokenProvider_SeesRefreshedToken(t *testing.T) {
	store := memory.NewCredentialStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alice", domain.ServiceCredential{ServiceID: "drive", AccessToken: "v1"}))

	p := NewCredentialTokenProvider("alice", "drive", store)
	tok, _ := p.GetToken(ctx)
	assert.Equal(t, "v1", tok)

	require.NoError(t, store.Save(ctx, "alice", domain.ServiceCredential{ServiceID: "drive", AccessToken: "v2"}))
	tok, _ = p.GetToken(ctx)
	assert.Equal(t, "v2", tok)
}

func TestCredentialTokenProvider_Missing(t *testing.T) {
	p := NewCredentialTokenProvider("alice", "github", memory.NewCredentialStore())
	ctx := context.Background()

	_, err := p.GetToken(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.False(t, p.IsAuthenticated(ctx))
	assert.True(t, p.IsExpired(ctx))
}

func TestCredentialTokenProvider_StoreError(t *testing.T) {
	p := NewCredentialTokenProvider("alice", "gmail", failingStore{memory.NewCredentialStore()})

	_, err := p.GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredential)
	assert.False(t, p.IsAuthenticated(context.Background()))
}

func TestCredentialTokenProvider_EmptyAccessToken(t *testing.T) {
	store := memory.NewCredentialStore()
	require.NoError(t, store.Save(context.Background(), "alice", domain.ServiceCredential{ServiceID: "gmail", RefreshToken: "r"}))

	_, err := NewCredentialTokenProvider("alice", "gmail", store).GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredential)
}
