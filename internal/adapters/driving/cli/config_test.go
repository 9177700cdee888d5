package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

type mockSettings struct {
	values map[string]any
	err    error
}

func (m *mockSettings) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettings) Set(key string, value any) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettings) Path() string { return "/home/alice/.casebrief/config.toml" }

func TestConfigCmd_SetParsesValues(t *testing.T) {
	settings := &mockSettings{values: map[string]any{}}
	cleanup := setupServices(t, &Services{Settings: settings})
	defer cleanup()

	_, err := execute(t, "config", "set", "generation.queue_depth", "32")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "selection.enabled", "true")
	require.NoError(t, err)
	out, err := execute(t, "config", "set", "generation.default_model", "gpt-4")
	require.NoError(t, err)

	assert.Contains(t, out, "generation.default_model")
	assert.Equal(t, int64(32), settings.values["generation.queue_depth"])
	assert.Equal(t, true, settings.values["selection.enabled"])
	assert.Equal(t, "gpt-4", settings.values["generation.default_model"])
}

func TestConfigCmd_SetRejectsBadKey(t *testing.T) {
	cleanup := setupServices(t, &Services{Settings: &mockSettings{values: map[string]any{}}})
	defer cleanup()

	_, err := execute(t, "config", "set", "llm.", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_SetError(t *testing.T) {
	cleanup := setupServices(t, &Services{Settings: &mockSettings{values: map[string]any{}, err: errors.New("read-only")}})
	defer cleanup()

	_, err := execute(t, "config", "set", "a.b", "c")
	assert.EqualError(t, err, "read-only")
}

func TestConfigCmd_GetMasksSecrets(t *testing.T) {
	cleanup := setupServices(t, &Services{Settings: &mockSettings{values: map[string]any{
		"llm.openai.api_key":         "sk-abcdefgh1234",
		"connectors.github.api_url":  "https://ghe.example.com/api/v3",
		"oauth.google.client_secret": "shh-secret",
	}}})
	defer cleanup()

	out, err := execute(t, "config", "get", "llm.openai.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "1234")
	assert.NotContains(t, out, "sk-abcdefgh")

	out, err = execute(t, "config", "get", "oauth.google.client_secret")
	require.NoError(t, err)
	assert.NotContains(t, out, "shh")

	out, err = execute(t, "config", "get", "connectors.github.api_url")
	require.NoError(t, err)
	assert.Contains(t, out, "https://ghe.example.com/api/v3")

	_, err = execute(t, "config", "get", "missing.key")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigCmd_Path(t *testing.T) {
	cleanup := setupServices(t, &Services{Settings: &mockSettings{}})
	defer cleanup()

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")
}

func TestConfigCmd_NotConfigured(t *testing.T) {
	cleanup := setupServices(t, &Services{})
	defer cleanup()

	_, err := execute(t, "config", "path")
	assert.EqualError(t, err, "settings not configured")
}
