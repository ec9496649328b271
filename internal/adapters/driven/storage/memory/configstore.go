package memory

import (
	"sync"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/config/values"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in process. It backs tests and runs that must
// not touch ~/.lexgraph.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// Get returns the raw value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString returns key as a string.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	return values.String(v)
}

// GetInt returns key as an int.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	return values.Int(v)
}

// GetFloat returns key as a float64.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	return values.Float(v)
}

// Set stores value under key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path returns ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }
