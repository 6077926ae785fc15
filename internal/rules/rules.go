// Package rules holds the installation-wide consolidation rules: affinity
// thresholds, conflict-resolution policy, path preferences and ignore
// patterns. One Config per installation, mutable only through explicit
// load/save/reset/apply-preset operations.
package rules

import (
	"fmt"
)

// Policy is the conflict-resolution policy applied during merges.
type Policy string

const (
	// PolicyManual requires a per-name resolution for every conflict
	PolicyManual Policy = "manual"
	// PolicyKeepLargest keeps the version with the largest body
	PolicyKeepLargest Policy = "keep_largest"
	// PolicyKeepComplex keeps the version with the most decision points
	PolicyKeepComplex Policy = "keep_complex"
	// PolicyKeepNewest keeps the version from the most recently modified file
	PolicyKeepNewest Policy = "keep_newest"
	// PolicyKeepAll refuses to auto-merge; execute fails while conflicts
	// remain unresolved
	PolicyKeepAll Policy = "keep_all"
)

// ValidPolicies lists every accepted conflict-resolution policy.
var ValidPolicies = []Policy{PolicyManual, PolicyKeepLargest, PolicyKeepComplex, PolicyKeepNewest, PolicyKeepAll}

// IsValidPolicy reports whether p is a known policy.
func IsValidPolicy(p Policy) bool {
	for _, v := range ValidPolicies {
		if p == v {
			return true
		}
	}
	return false
}

// Config is the consolidation rules configuration.
type Config struct {
	MinAffinityThreshold float64  `json:"minAffinityThreshold" mapstructure:"minAffinityThreshold"`
	ConflictResolution   Policy   `json:"conflictResolution" mapstructure:"conflictResolution"`
	PreferPaths          []string `json:"preferPaths" mapstructure:"preferPaths"`
	NeverMasterFrom      []string `json:"neverMasterFrom" mapstructure:"neverMasterFrom"`
	IgnorePatterns       []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
	AutoCommit           bool     `json:"autoCommit" mapstructure:"autoCommit"`
}

// DefaultConfig returns the default rules configuration.
func DefaultConfig() Config {
	return Config{
		MinAffinityThreshold: 0.5,
		ConflictResolution:   PolicyManual,
		PreferPaths:          []string{"src/*", "lib/*"},
		NeverMasterFrom:      []string{"*_backup*", "*_old*", "*.bak", "tmp/*", "backup/*"},
		IgnorePatterns:       []string{"node_modules/*", "vendor/*", ".git/*", "__pycache__/*", "dist/*", "build/*"},
		AutoCommit:           false,
	}
}

// Validate checks a configuration and returns the list of issues found.
// An empty issue list means the configuration is valid.
func Validate(cfg Config) []string {
	var issues []string

	if cfg.MinAffinityThreshold < 0 || cfg.MinAffinityThreshold > 1 {
		issues = append(issues, fmt.Sprintf("minAffinityThreshold must be in [0,1], got %g", cfg.MinAffinityThreshold))
	}
	if !IsValidPolicy(cfg.ConflictResolution) {
		issues = append(issues, fmt.Sprintf("conflictResolution %q is not one of %v", cfg.ConflictResolution, ValidPolicies))
	}
	for _, field := range []struct {
		name     string
		patterns []string
	}{
		{"preferPaths", cfg.PreferPaths},
		{"neverMasterFrom", cfg.NeverMasterFrom},
		{"ignorePatterns", cfg.IgnorePatterns},
	} {
		for _, p := range field.patterns {
			if p == "" {
				issues = append(issues, field.name+" contains an empty pattern")
			}
		}
	}

	return issues
}
