package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

//go:embed catalogs/*.yml
var builtinFS embed.FS

// ErrUnknownModule is returned when a module id has no registered catalog.
var ErrUnknownModule = errors.New("unknown module")

// LoadFromDir loads and validates every catalog YAML file in dir.
func LoadFromDir(dir string) (*Registry, error) {
	if dir == "" {
		dir = "catalogs"
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("scan catalog dir: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog YAML files found in %s", dir)
	}
	sort.Strings(files)

	sources := make(map[string][]byte, len(files))
	for _, p := range files {
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", p, readErr)
		}
		sources[p] = data
	}
	return buildRegistry(files, sources)
}

// Builtin returns the catalogs shipped with the binary.
func Builtin() (*Registry, error) {
	files, err := fs.Glob(builtinFS, "catalogs/*.yml")
	if err != nil {
		return nil, fmt.Errorf("scan builtin catalogs: %w", err)
	}
	sort.Strings(files)

	sources := make(map[string][]byte, len(files))
	for _, p := range files {
		data, readErr := builtinFS.ReadFile(p)
		if readErr != nil {
			return nil, fmt.Errorf("read builtin %s: %w", p, readErr)
		}
		sources[p] = data
	}
	return buildRegistry(files, sources)
}

// BuiltinSource returns the raw YAML of an embedded catalog, for seeding a workspace.
func BuiltinSource(moduleID string) ([]byte, error) {
	data, err := builtinFS.ReadFile(path.Join("catalogs", moduleID+".yml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	return data, nil
}

func buildRegistry(files []string, sources map[string][]byte) (*Registry, error) {
	var catalogs []*Catalog
	var cErrs ConfigurationError

	for _, p := range files {
		cat, parseErr := ParseAndValidateCatalog(sources[p], p)
		if parseErr != nil {
			var ce ConfigurationError
			if errors.As(parseErr, &ce) {
				cErrs = append(cErrs, ce...)
				continue
			}
			return nil, parseErr
		}
		catalogs = append(catalogs, cat)
	}
	if len(cErrs) > 0 {
		return nil, cErrs
	}

	seen := make(map[string]string)
	for _, cat := range catalogs {
		if other, exists := seen[cat.ModuleID]; exists {
			cErrs = append(cErrs, Issue{
				File:    cat.Source,
				Field:   "module_id",
				Message: fmt.Sprintf("module_id %q already defined in %s", cat.ModuleID, other),
			})
			continue
		}
		seen[cat.ModuleID] = cat.Source
	}
	if len(cErrs) > 0 {
		return nil, cErrs
	}
	return NewRegistry(catalogs...), nil
}

// Load returns the catalog registered for moduleID.
func (r *Registry) Load(moduleID string) (*Catalog, error) {
	if r != nil {
		if cat, ok := r.catalogs[moduleID]; ok {
			return cat, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
}

// Merge returns a registry holding r's catalogs with other's catalogs
// replacing any that share a module id.
func (r *Registry) Merge(other *Registry) *Registry {
	merged := NewRegistry()
	if r != nil {
		for id, cat := range r.catalogs {
			merged.catalogs[id] = cat
		}
	}
	if other != nil {
		for id, cat := range other.catalogs {
			merged.catalogs[id] = cat
		}
	}
	return merged
}
