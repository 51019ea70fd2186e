// Package manifest loads the host application manifest. The manifest names
// the app, points at its tray icon, and carries the default key/value state
// seeded into the coordinator at boot.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Manifest describes the hosted application.
type Manifest struct {
	Name     string         `yaml:"name" toml:"name" json:"name"`
	Icon     string         `yaml:"icon" toml:"icon" json:"icon"`
	Tooltip  string         `yaml:"tooltip" toml:"tooltip" json:"tooltip"`
	Defaults map[string]any `yaml:"defaults" toml:"defaults" json:"defaults"`
}

// Default returns the manifest used when no file is configured. Icon is
// left empty so the configured tray icon applies.
func Default() *Manifest {
	return &Manifest{
		Name:     "desktop",
		Defaults: map[string]any{},
	}
}

// Load reads and parses the manifest at path. The format follows the file
// extension: .yml/.yaml or .toml.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("manifest %s: unsupported format %q", path, filepath.Ext(path))
	}

	if m.Defaults == nil {
		m.Defaults = map[string]any{}
	}
	return m, nil
}

// LoadOrDefault loads path when set, otherwise returns Default. A configured
// path that fails to load is an error; a missing configuration is not.
func LoadOrDefault(path string) (*Manifest, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
