package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// defaults holds the built-in prompts, one <name>.txt per prompt, plus the
// README copied next to them.
//
//go:embed defaults
var defaults embed.FS

// PromptStore serves prompts from <dir>/<name>.txt so users can tune them.
// The directory is seeded with the built-in prompts on first use, and a
// prompt whose file cannot be read falls back to the built-in text.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore does no I/O. An empty dir means ~/.lexgraph/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".lexgraph", "prompts")
	}
	return &PromptStore{dir: dir, cache: map[string]string{}}, nil
}

func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt with surrounding whitespace removed.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(func() { s.seedErr = s.seed() })

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = map[string]string{}
	s.mu.Unlock()
}

// read prefers the user's file and falls back to the built-in prompt.
func (s *PromptStore) read(name string) (string, error) {
	if s.seedErr == nil {
		if data, err := os.ReadFile(filepath.Join(s.dir, name+".txt")); err == nil {
			return strings.TrimSpace(string(data)), nil
		}
	}
	data, err := defaults.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return strings.TrimSpace(string(data)), nil
}

// seed creates the directory and writes every built-in file that is not
// already present. Existing files are left alone.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := defaults.ReadDir("defaults")
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile("defaults/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}
