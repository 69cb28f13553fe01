package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dealready/internal/config"
)

// Workspace holds the on-disk layout of a readiness assessment.
type Workspace struct {
	Root        string
	ConfigPath  string
	CatalogsDir string
	StateDir    string
	StateDBPath string
	AuditDir    string
	AuditDBPath string
	ReportsDir  string
}

// Resolve expands root and requires it to be an existing directory.
func Resolve(root string) (*Workspace, error) {
	abs, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	return newWorkspace(abs), nil
}

// ResolveRoot resolves the workspace root without requiring it to exist.
func ResolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("workspace root is required")
	}
	expanded, err := expandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return abs, nil
}

// EnsureDirs creates the catalog, state, audit and report directories.
func (w *Workspace) EnsureDirs() error {
	if w == nil {
		return fmt.Errorf("workspace is nil")
	}
	for _, dir := range []string{w.CatalogsDir, w.StateDir, w.AuditDir, w.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	return nil
}

// Initialized reports whether the workspace has a config file.
func (w *Workspace) Initialized() bool {
	_, err := os.Stat(w.ConfigPath)
	return err == nil
}

// ResolvePath returns an absolute path, resolving relative paths from the workspace root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("workspace is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Abs(filepath.Join(w.Root, expanded))
}

// LoadConfig reads dealready.yml, applies DEALREADY_* overrides and anchors
// relative paths at the workspace root.
func (w *Workspace) LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(w.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", w.ConfigPath, err)
	}

	var errs []error
	resolve := func(p *string) {
		if *p == "" {
			return
		}
		abs, err := w.ResolvePath(*p)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*p = abs
	}
	resolve(&cfg.CatalogDir)
	resolve(&cfg.DimensionsFile)
	resolve(&cfg.Store.SQLitePath)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newWorkspace(root string) *Workspace {
	return &Workspace{
		Root:        root,
		ConfigPath:  filepath.Join(root, config.FileName),
		CatalogsDir: filepath.Join(root, "catalogs"),
		StateDir:    filepath.Join(root, "state"),
		StateDBPath: filepath.Join(root, "state", "runs.sqlite"),
		AuditDir:    filepath.Join(root, "audit"),
		AuditDBPath: filepath.Join(root, "audit", "audit.sqlite"),
		ReportsDir:  filepath.Join(root, "reports"),
	}
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}
