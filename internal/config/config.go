// Package config loads and persists the engine configuration from
// .hypermatrix/config.toml under the workspace root.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"hypermatrix/internal/affinity"
)

// ConfigDirName is the per-workspace directory holding engine state.
const ConfigDirName = ".hypermatrix"

// Config is the complete engine configuration.
type Config struct {
	Version       int    `toml:"version" json:"version"`
	WorkspaceRoot string `toml:"workspaceRoot" json:"workspaceRoot"`

	Server   ServerConfig     `toml:"server" json:"server"`
	Scan     ScanConfig       `toml:"scan" json:"scan"`
	Affinity AffinityConfig   `toml:"affinity" json:"affinity"`
	Merge    MergeConfig      `toml:"merge" json:"merge"`
	Storage  StorageConfig    `toml:"storage" json:"storage"`
	Logging  LoggingConfig    `toml:"logging" json:"logging"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host           string `toml:"host" json:"host"`
	Port           int    `toml:"port" json:"port"`
	ReadTimeoutMs  int    `toml:"readTimeoutMs" json:"readTimeoutMs"`
	WriteTimeoutMs int    `toml:"writeTimeoutMs" json:"writeTimeoutMs"`
}

// ScanConfig controls workspace walking and fingerprinting.
type ScanConfig struct {
	MaxFileSizeBytes int64    `toml:"maxFileSizeBytes" json:"maxFileSizeBytes"`
	Workers          int      `toml:"workers" json:"workers"`
	IgnorePatterns   []string `toml:"ignorePatterns" json:"ignorePatterns"`
	FollowSymlinks   bool     `toml:"followSymlinks" json:"followSymlinks"`
}

// AffinityConfig sets the scoring weights.
type AffinityConfig struct {
	ContentWeight   float64 `toml:"contentWeight" json:"contentWeight"`
	StructureWeight float64 `toml:"structureWeight" json:"structureWeight"`
	DNAWeight       float64 `toml:"dnaWeight" json:"dnaWeight"`
}

// Weights converts the configured weights, falling back to the defaults
// when the configured set does not sum to 1.
func (a AffinityConfig) Weights() affinity.Weights {
	w := affinity.Weights{Content: a.ContentWeight, Structure: a.StructureWeight, DNA: a.DNAWeight}
	if !w.Valid() {
		return affinity.DefaultWeights()
	}
	return w
}

// MergeConfig controls merge previews.
type MergeConfig struct {
	PreviewMaxLines int `toml:"previewMaxLines" json:"previewMaxLines"`
}

// StorageConfig locates the scan database.
type StorageConfig struct {
	DatabasePath string `toml:"databasePath" json:"databasePath"`
}

// LoggingConfig mirrors the logging package's level and format knobs.
type LoggingConfig struct {
	Format string `toml:"format" json:"format"`
	Level  string `toml:"level" json:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		WorkspaceRoot: ".",
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           7432,
			ReadTimeoutMs:  15000,
			WriteTimeoutMs: 60000,
		},
		Scan: ScanConfig{
			MaxFileSizeBytes: 2_000_000,
			Workers:          0, // 0 means GOMAXPROCS
			IgnorePatterns:   []string{"node_modules", ".git", "vendor", "dist", "build", "__pycache__"},
			FollowSymlinks:   false,
		},
		Affinity: AffinityConfig{
			ContentWeight:   0.4,
			StructureWeight: 0.3,
			DNAWeight:       0.3,
		},
		Merge: MergeConfig{
			PreviewMaxLines: 200,
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(ConfigDirName, "hypermatrix.db"),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig reads .hypermatrix/config.toml under the workspace root.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(workspaceRoot string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.WorkspaceRoot = workspaceRoot

	path := filepath.Join(workspaceRoot, ConfigDirName, "config.toml")
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, &ConfigError{Field: undecoded[0].String(), Message: "unknown configuration key"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .hypermatrix/config.toml, creating the
// directory when needed.
func (c *Config) Save(workspaceRoot string) error {
	dir := filepath.Join(workspaceRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, "config.toml"))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Validate checks structural constraints the decoder cannot express.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "port out of range"}
	}
	if c.Scan.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "scan.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Scan.Workers < 0 {
		return &ConfigError{Field: "scan.workers", Message: "must not be negative"}
	}
	if c.Merge.PreviewMaxLines <= 0 {
		return &ConfigError{Field: "merge.previewMaxLines", Message: "must be positive"}
	}
	return nil
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
