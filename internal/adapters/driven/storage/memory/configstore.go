package memory

import (
	"fmt"
	"sync"

	"github.com/didact-labs/didact/internal/adapters/driven/config"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory under the same key and value rules
// as the TOML store. Save snapshots the values and Load restores the last
// snapshot, so tests can exercise reload behaviour without a file.
type ConfigStore struct {
	mu       sync.RWMutex
	values   config.Values
	snapshot config.Values
}

// NewConfigStore creates an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		values:   make(config.Values),
		snapshot: make(config.Values),
	}
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.String(key)
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Int(key)
}

// GetFloat retrieves a floating point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Float(key)
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Bool(key)
}

// GetStringSlice retrieves a string list configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Strings(key)
}

// Set validates and stores a value. Like the file store it persists
// immediately, so the value is also part of the snapshot.
func (s *ConfigStore) Set(key string, value any) error {
	if err := config.CheckKey(key); err != nil {
		return err
	}
	stored, err := config.Normalize(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = stored
	s.snapshot[key] = stored
	return nil
}

// Save snapshots the current values.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = clone(s.values)
	return nil
}

// Load restores the last snapshot.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = clone(s.snapshot)
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}

func clone(v config.Values) config.Values {
	out := make(config.Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
