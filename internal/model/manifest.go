package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Manifest maps domain slots to model artifacts.
type Manifest struct {
	Models map[string]SlotEntry `yaml:"models"`
}

// SlotEntry locates the model for one slot: either an artifact path (local or
// gs://) or the endpoint of a model server.
type SlotEntry struct {
	Path          string `yaml:"path,omitempty"`
	Endpoint      string `yaml:"endpoint,omitempty"`
	SchemaVersion string `yaml:"schema_version,omitempty"`
}

// LoadManifest reads a YAML manifest. Relative artifact paths resolve against
// the manifest's directory.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for name, e := range m.Models {
		if e.Path != "" && !strings.HasPrefix(e.Path, gcsScheme) && !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(dir, e.Path)
			m.Models[name] = e
		}
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	for name, e := range m.Models {
		if _, err := domain.ParseDomain(name); err != nil {
			return Manifest{}, err
		}
		if (e.Path == "") == (e.Endpoint == "") {
			return Manifest{}, fmt.Errorf("slot %s: exactly one of path or endpoint is required", name)
		}
		if e.SchemaVersion == "" {
			e.SchemaVersion = domain.SchemaVersionV1
			m.Models[name] = e
		}
	}
	return m, nil
}
