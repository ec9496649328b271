package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/config/values"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvPrefix is prepended to upper-cased keys to form environment overrides.
// For example "llm.api_key" is overridden by LEXGRAPH_LLM_API_KEY.
const EnvPrefix = "LEXGRAPH_"

// ConfigStore keeps settings in ~/.lexgraph/config.toml. Dotted keys are
// written as nested tables, so "store.backend" lands in a [store] section.
// Environment overrides win on read and are never written back.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore opens config.toml inside configDir, creating the
// directory when needed. An empty configDir means ~/.lexgraph.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		configDir = filepath.Join(home, ".lexgraph")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{filePath: filepath.Join(configDir, "config.toml")}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns the value for key. A non-empty environment override wins.
func (s *ConfigStore) Get(key string) (any, bool) {
	if v := os.Getenv(EnvKey(key)); v != "" {
		return v, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	return values.String(v)
}

func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	return values.Int(v)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	return values.Float(v)
}

// Set stores value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.write()
}

// Delete removes key and rewrites the file when it was present.
func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.write()
}

// Save rewrites the file from the current values.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write must be called with mu held.
func (s *ConfigStore) write() error {
	out, err := toml.Marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.filePath, err)
	}
	return os.WriteFile(s.filePath, out, 0o600)
}

// Load replaces the current values with the file contents. A missing file
// loads as empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = map[string]any{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.data = map[string]any{}
	flatten("", tree, s.data)
	return nil
}

func (s *ConfigStore) Path() string {
	return s.filePath
}

// flatten copies tree into out with dotted keys.
func flatten(prefix string, tree, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(k, sub, out)
			continue
		}
		out[k] = v
	}
}

// nest is the inverse of flatten. Keys are visited in order so that a
// scalar and a table claiming the same name resolve the same way each time.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = flat[key]
	}
	return root
}
