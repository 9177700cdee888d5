package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/casebrief/internal/adapters/driven/config"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// providerEnv lets the conventional provider variables configure casebrief
// without a CASEBRIEF_ prefix.
var providerEnv = map[string]string{
	driven.ConfigOpenAIAPIKey:    "OPENAI_API_KEY",
	driven.ConfigAnthropicAPIKey: "ANTHROPIC_API_KEY",
	driven.ConfigOllamaBaseURL:   "OLLAMA_HOST",
}

// ConfigStore persists configuration as TOML in <dir>/config.toml. Tables
// are read into dot-notation keys and written back as tables.
type ConfigStore struct {
	*config.Values
	path string
}

// NewConfigStore opens the store in configDir, creating the directory when
// needed. An empty configDir means ~/.casebrief.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	return newConfigStore(configDir, os.Getenv)
}

func newConfigStore(configDir string, getenv func(string) string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		configDir = filepath.Join(home, ".casebrief")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{
		Values: config.NewValues(nil, getenv, providerEnv),
		path:   filepath.Join(configDir, "config.toml"),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores value under key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	return s.Locked(func(data map[string]any) error {
		data[key] = value
		return s.write(data)
	})
}

// Save rewrites the file from the stored values.
func (s *ConfigStore) Save() error {
	return s.Locked(s.write)
}

func (s *ConfigStore) write(data map[string]any) error {
	encoded, err := toml.Marshal(nest(data))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// Load replaces the stored values with the file's contents. A missing file
// yields an empty store.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(map[string]any{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(raw, &tables); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	flat := make(map[string]any)
	flatten(flat, "", tables)
	s.Replace(flat)
	return nil
}

// Path returns the TOML file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// flatten writes {"llm": {"openai": {"api_key": "x"}}} into dst as
// {"llm.openai.api_key": "x"}.
func flatten(dst map[string]any, prefix string, tables map[string]any) {
	for key, value := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flatten(dst, key, table)
			continue
		}
		dst[key] = value
	}
}

// nest is the inverse of flatten.
func nest(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := table[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				table[part] = child
			}
			table = child
		}
		table[parts[len(parts)-1]] = value
	}
	return root
}
