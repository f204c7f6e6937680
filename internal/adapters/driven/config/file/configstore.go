package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/didact-labs/didact/internal/adapters/driven/config"
	"github.com/didact-labs/didact/internal/core/ports/driven"
	"github.com/didact-labs/didact/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

const configFile = "config.toml"

// ConfigStore keeps settings in <dir>/config.toml, one table per settings
// section:
//
//	[answer]
//	evidence_k = 10
//
//	[llm]
//	provider = "openai"
//
// Keys outside the known sections are rejected by Set. Such keys found in
// a hand-edited file are kept and logged.
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	values config.Values
}

// NewConfigStore opens the store in configDir, ~/.didact when empty.
// A missing file is an empty configuration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".didact")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		path:   filepath.Join(configDir, configFile),
		values: make(config.Values),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
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

// Set validates and stores a value, then rewrites the file.
// The in-memory value is left unchanged when the write fails.
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

	prev, had := s.values[key]
	s.values[key] = stored
	if err := s.write(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Save writes the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write replaces the file through a temporary sibling so a failed write
// never truncates existing settings. Caller holds mu.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(s.values.Tables())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load rereads the file. A missing file clears the configuration.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read config: %w", err)
	}

	var tables map[string]any
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &tables); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	values := config.Flatten(tables)
	for _, key := range values.Unknown() {
		logger.Warn("config: unknown setting %s in %s", key, s.path)
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}
