// Package config implements the typed, environment-aware lookup shared by
// the configuration stores. Stores add persistence on top of Values.
package config

import (
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EnvPrefix prefixes the generic environment override of every key.
const EnvPrefix = "CASEBRIEF_"

// EnvName returns the generic environment variable for key, e.g.
// generation.default_model -> CASEBRIEF_GENERATION_DEFAULT_MODEL.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Values is a flat map of dot-notation keys. Lookups consult the
// environment first: the generic CASEBRIEF_* name, then any alias.
type Values struct {
	mu      sync.RWMutex
	data    map[string]any
	getenv  func(string) string
	aliases map[string]string
}

// NewValues copies initial. getenv may be nil to ignore the environment.
// aliases maps keys to additional environment variable names.
func NewValues(initial map[string]any, getenv func(string) string, aliases map[string]string) *Values {
	data := make(map[string]any, len(initial))
	maps.Copy(data, initial)
	return &Values{data: data, getenv: getenv, aliases: aliases}
}

func (v *Values) env(key string) (string, bool) {
	if v.getenv == nil {
		return "", false
	}
	if s := v.getenv(EnvName(key)); s != "" {
		return s, true
	}
	if alias, ok := v.aliases[key]; ok {
		if s := v.getenv(alias); s != "" {
			return s, true
		}
	}
	return "", false
}

// Get returns the raw value of key. Environment values are strings.
func (v *Values) Get(key string) (any, bool) {
	if s, ok := v.env(key); ok {
		return s, true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

// GetString returns string values only.
func (v *Values) GetString(key string) string {
	val, _ := v.Get(key)
	s, _ := val.(string)
	return s
}

// GetInt accepts integers, whole floats and numeric strings.
func (v *Values) GetInt(key string) int {
	val, _ := v.Get(key)
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

// GetBool accepts booleans and strconv.ParseBool strings.
func (v *Values) GetBool(key string) bool {
	val, _ := v.Get(key)
	switch b := val.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	}
	return false
}

// GetDuration accepts time.Duration, duration strings such as "45m", and
// integers as seconds.
func (v *Values) GetDuration(key string) time.Duration {
	val, _ := v.Get(key)
	switch d := val.(type) {
	case time.Duration:
		return d
	case int64:
		return time.Duration(d) * time.Second
	case int:
		return time.Duration(d) * time.Second
	case string:
		if parsed, err := time.ParseDuration(strings.TrimSpace(d)); err == nil {
			return parsed
		}
		if secs, err := strconv.Atoi(strings.TrimSpace(d)); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// GetStringSlice accepts string arrays, mixed arrays (non-strings are
// skipped) and comma-separated strings.
func (v *Values) GetStringSlice(key string) []string {
	val, _ := v.Get(key)
	switch s := val.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// Put stores a value without touching the environment.
func (v *Values) Put(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
}

// Replace swaps the stored values for data.
func (v *Values) Replace(data map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = data
}

// Locked runs fn while holding the write lock, passing the live map.
func (v *Values) Locked(fn func(data map[string]any) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v.data)
}
