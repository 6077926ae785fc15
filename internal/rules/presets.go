package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const presetsFileName = "presets.yaml"

// Preset is a named, ready-to-apply rules configuration.
type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Config      Config `json:"config" yaml:"config"`
}

// builtinPresets are the presets every installation ships with.
func builtinPresets() []Preset {
	return []Preset{
		{
			Name:        "conservative",
			Description: "High affinity bar, manual conflict resolution, nothing automatic",
			Config: Config{
				MinAffinityThreshold: 0.8,
				ConflictResolution:   PolicyManual,
				PreferPaths:          []string{"src/*"},
				NeverMasterFrom:      []string{"*_backup*", "*_old*", "*.bak", "tmp/*", "backup/*", "test/*", "tests/*"},
				IgnorePatterns:       DefaultConfig().IgnorePatterns,
				AutoCommit:           false,
			},
		},
		{
			Name:        "balanced",
			Description: "Default thresholds with size-based auto-resolution",
			Config: Config{
				MinAffinityThreshold: 0.5,
				ConflictResolution:   PolicyKeepLargest,
				PreferPaths:          []string{"src/*", "lib/*"},
				NeverMasterFrom:      DefaultConfig().NeverMasterFrom,
				IgnorePatterns:       DefaultConfig().IgnorePatterns,
				AutoCommit:           false,
			},
		},
		{
			Name:        "aggressive",
			Description: "Low affinity bar, complexity-based auto-resolution, auto-commit",
			Config: Config{
				MinAffinityThreshold: 0.3,
				ConflictResolution:   PolicyKeepComplex,
				PreferPaths:          []string{"src/*", "lib/*", "app/*"},
				NeverMasterFrom:      []string{"*.bak"},
				IgnorePatterns:       DefaultConfig().IgnorePatterns,
				AutoCommit:           true,
			},
		},
	}
}

// Presets returns every available preset: built-ins plus user presets from
// presets.yaml in the store directory. A user preset with a built-in's name
// overrides it. The result is sorted by name.
func (s *Store) Presets() []Preset {
	byName := make(map[string]Preset)
	for _, p := range builtinPresets() {
		byName[p.Name] = p
	}
	for _, p := range s.userPresets() {
		byName[p.Name] = p
	}

	out := make([]Preset, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindPreset looks a preset up by name.
func (s *Store) FindPreset(name string) (Preset, bool) {
	for _, p := range s.Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// userPresets loads user-defined presets from presets.yaml. Missing or
// malformed files simply yield no user presets; malformed presets are not
// worth failing a listing over.
func (s *Store) userPresets() []Preset {
	data, err := os.ReadFile(filepath.Join(s.dir, presetsFileName))
	if err != nil {
		return nil
	}

	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}

	var valid []Preset
	for _, p := range doc.Presets {
		if p.Name == "" || len(Validate(p.Config)) > 0 {
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// SaveUserPresets writes user presets to presets.yaml.
func (s *Store) SaveUserPresets(presets []Preset) error {
	for _, p := range presets {
		if p.Name == "" {
			return fmt.Errorf("preset without a name")
		}
		if issues := Validate(p.Config); len(issues) > 0 {
			return fmt.Errorf("preset %q invalid: %v", p.Name, issues)
		}
	}

	doc := struct {
		Presets []Preset `yaml:"presets"`
	}{Presets: presets}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling presets: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, presetsFileName), data, 0o644)
}
