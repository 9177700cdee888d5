package services

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
)

// Ensure ModelRegistry implements the interface.
var _ driving.ModelCatalog = (*ModelRegistry)(nil)

// Generation defaults shared by every model.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 4000
)

// ModelBinding ties a user-facing model name to a backend.
type ModelBinding struct {
	Name        string
	ModelID     string
	Backend     driven.ModelBackend
	Temperature float64
	MaxTokens   int
}

// ModelRegistry resolves model names to backends. Names are listed in
// registration order.
type ModelRegistry struct {
	mu       sync.RWMutex
	order    []string
	bindings map[string]ModelBinding
}

// NewModelRegistry creates an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{bindings: make(map[string]ModelBinding)}
}

// Register binds a name to a backend model. Zero temperature and token
// limits take the package defaults.
func (r *ModelRegistry) Register(b ModelBinding) {
	if b.Temperature == 0 {
		b.Temperature = DefaultTemperature
	}
	if b.MaxTokens == 0 {
		b.MaxTokens = DefaultMaxTokens
	}
	if b.ModelID == "" {
		b.ModelID = b.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[b.Name]; !exists {
		r.order = append(r.order, b.Name)
	}
	r.bindings[b.Name] = b
}

// Resolve returns the binding for a model name.
func (r *ModelRegistry) Resolve(name string) (ModelBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[name]
	if !ok || b.Backend == nil {
		return ModelBinding{}, fmt.Errorf("%w: %w: %q", domain.ErrConfiguration, domain.ErrUnknownModel, name)
	}
	return b, nil
}

// Models lists registered models in registration order.
func (r *ModelRegistry) Models() []driving.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]driving.ModelInfo, 0, len(r.order))
	for _, name := range r.order {
		b := r.bindings[name]
		info := driving.ModelInfo{
			Name:        b.Name,
			ModelID:     b.ModelID,
			Temperature: b.Temperature,
			MaxTokens:   b.MaxTokens,
		}
		if b.Backend != nil {
			info.Provider = b.Backend.Provider()
		}
		out = append(out, info)
	}
	return out
}
