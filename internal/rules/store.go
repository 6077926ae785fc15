package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"hypermatrix/internal/errors"
)

const rulesFileName = "rules.json"

// Store holds the installation's rules configuration behind a single-writer
// lock: concurrent readers (master selection, merge planning) see either
// the old or the new config entirely, never a torn read.
type Store struct {
	mu  sync.RWMutex
	cfg Config
	dir string // Directory holding rules.json
}

// NewStore creates a store rooted at dir, loading rules.json if present
// and falling back to defaults otherwise.
func NewStore(dir string) (*Store, error) {
	cfg, err := load(dir)
	if err != nil {
		return nil, err
	}
	return &Store{cfg: cfg, dir: dir}, nil
}

// load reads rules.json via viper, returning defaults when the file is absent.
func load(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("rules")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("reading rules config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling rules config: %w", err)
	}
	return cfg, nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConfig(s.cfg)
}

// Put validates, persists and installs a new configuration.
func (s *Store) Put(cfg Config) error {
	if issues := Validate(cfg); len(issues) > 0 {
		return errors.New(errors.RulesInvalid, "rules validation failed").WithDetails(issues)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(cfg); err != nil {
		return err
	}
	s.cfg = copyConfig(cfg)
	return nil
}

// Reset restores and persists the default configuration.
func (s *Store) Reset() (Config, error) {
	cfg := DefaultConfig()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(cfg); err != nil {
		return Config{}, err
	}
	s.cfg = copyConfig(cfg)
	return copyConfig(cfg), nil
}

// ApplyPreset installs a named preset (built-in or user-defined).
func (s *Store) ApplyPreset(name string) (Config, error) {
	preset, ok := s.FindPreset(name)
	if !ok {
		return Config{}, errors.Newf(errors.ScopeInvalid, "unknown preset %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(preset.Config); err != nil {
		return Config{}, err
	}
	s.cfg = copyConfig(preset.Config)
	return copyConfig(preset.Config), nil
}

// persist writes the config to rules.json. Caller holds the write lock.
func (s *Store) persist(cfg Config) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rules config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, rulesFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing rules config: %w", err)
	}
	return nil
}

func copyConfig(cfg Config) Config {
	out := cfg
	out.PreferPaths = append([]string(nil), cfg.PreferPaths...)
	out.NeverMasterFrom = append([]string(nil), cfg.NeverMasterFrom...)
	out.IgnorePatterns = append([]string(nil), cfg.IgnorePatterns...)
	return out
}
