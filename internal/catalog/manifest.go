// Package catalog holds the reference contacts and focus areas a user can
// pick from when requesting a briefing.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultManifest []byte

// ContactEntry is a selectable primary contact
type ContactEntry struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
}

// FocusArea is a selectable research emphasis
type FocusArea struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Manifest is the parsed catalog file
type Manifest struct {
	Contacts   []ContactEntry `yaml:"contacts"`
	FocusAreas []FocusArea    `yaml:"focus_areas"`
}

// ParseManifest decodes a catalog with strict validation: unknown keys are
// rejected and every entry needs an id and a display name.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i, c := range m.Contacts {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("catalog contact %d missing required field: id and name", i)
		}
	}
	for i, f := range m.FocusAreas {
		if f.ID == "" || f.Label == "" {
			return nil, fmt.Errorf("catalog focus area %d missing required field: id and label", i)
		}
	}

	return &m, nil
}

// LoadManifest reads a catalog file, or the built-in catalog when path is empty
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return ParseManifest(defaultManifest)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseManifest(data)
}
