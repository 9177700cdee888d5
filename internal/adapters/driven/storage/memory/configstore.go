package memory

import (
	"github.com/custodia-labs/casebrief/internal/adapters/driven/config"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds configuration in memory and ignores the environment.
type ConfigStore struct {
	*config.Values
}

// NewConfigStore creates a config store seeded with a copy of values.
func NewConfigStore(values map[string]any) *ConfigStore {
	return &ConfigStore{Values: config.NewValues(values, nil, nil)}
}

// Set stores a value. It never fails.
func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }

// Path returns ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }
