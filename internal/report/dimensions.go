package report

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed dimensions.yml
var defaultDimensions []byte

// DimensionMap assigns module categories to readiness dimensions. It is
// configuration: module id -> category id -> dimension.
type DimensionMap map[string]map[string]Dimension

// Lookup returns the dimension of a module category.
func (m DimensionMap) Lookup(moduleID, categoryID string) (Dimension, bool) {
	d, ok := m[moduleID][categoryID]
	return d, ok
}

// DefaultDimensions returns the mapping for the built-in catalogs.
func DefaultDimensions() DimensionMap {
	m, err := ParseDimensions(defaultDimensions)
	if err != nil {
		panic(fmt.Sprintf("embedded dimension map: %v", err))
	}
	return m
}

// ParseDimensions decodes a YAML dimension map and rejects unknown dimensions.
func ParseDimensions(data []byte) (DimensionMap, error) {
	var m DimensionMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse dimension map: %w", err)
	}
	if m == nil {
		m = DimensionMap{}
	}
	modules := make([]string, 0, len(m))
	for moduleID := range m {
		modules = append(modules, moduleID)
	}
	sort.Strings(modules)
	for _, moduleID := range modules {
		categories := make([]string, 0, len(m[moduleID]))
		for categoryID := range m[moduleID] {
			categories = append(categories, categoryID)
		}
		sort.Strings(categories)
		for _, categoryID := range categories {
			if d := m[moduleID][categoryID]; !d.valid() {
				return nil, fmt.Errorf("dimension map %s.%s: unknown dimension %q", moduleID, categoryID, d)
			}
		}
	}
	return m, nil
}

// LoadDimensions reads a dimension map from path. An empty path returns the defaults.
func LoadDimensions(path string) (DimensionMap, error) {
	if path == "" {
		return DefaultDimensions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dimension map: %w", err)
	}
	return ParseDimensions(data)
}
