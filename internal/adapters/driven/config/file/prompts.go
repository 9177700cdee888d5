package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults
var defaults embed.FS

// PromptStore serves prompts from <dir>/<name>.txt. The shipped defaults
// are copied into dir on first use, never over an existing file, and are
// served directly when dir cannot be written or a file is deleted.
type PromptStore struct {
	dir  string
	seed sync.Once

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

// cachedPrompt remembers the file time so edits are picked up.
type cachedPrompt struct {
	text    string
	modTime time.Time
}

// NewPromptStore creates a prompt store. An empty dir means
// ~/.casebrief/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		dir = filepath.Join(home, ".casebrief", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt with surrounding whitespace removed.
func (s *PromptStore) Load(name string) (string, error) {
	s.seed.Do(s.seedDefaults)

	file := filepath.Join(s.dir, name+".txt")
	info, err := os.Stat(file)
	if err != nil {
		return builtin(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return builtin(name)
	}
	text := strings.TrimSpace(string(raw))
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	return text, nil
}

// Reload forgets every cached prompt.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// seedDefaults copies missing default files into dir. Failures only mean
// the built-in text is served.
func (s *PromptStore) seedDefaults() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return
	}
	entries, _ := fs.ReadDir(defaults, "defaults")
	for _, e := range entries {
		dst := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile(path.Join("defaults", e.Name()))
		if err != nil {
			continue
		}
		_ = os.WriteFile(dst, data, 0o600)
	}
}

func builtin(name string) (string, error) {
	data, err := defaults.ReadFile(path.Join("defaults", name+".txt"))
	if err != nil {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	return strings.TrimSpace(string(data)), nil
}
