package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Resolve(file); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestEnsureDirsCreatesLayout(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	for _, dir := range []string{ws.CatalogsDir, ws.StateDir, ws.AuditDir, ws.ReportsDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
	if got, want := ws.AuditDBPath, filepath.Join(ws.Root, "audit", "audit.sqlite"); got != want {
		t.Fatalf("audit db = %s, want %s", got, want)
	}
	if ws.Initialized() {
		t.Fatalf("workspace without config must not count as initialized")
	}
}

func TestResolvePath(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := ws.ResolvePath("state/runs.sqlite")
	if err != nil {
		t.Fatalf("resolve path: %v", err)
	}
	if want := filepath.Join(ws.Root, "state", "runs.sqlite"); got != want {
		t.Fatalf("ResolvePath = %s, want %s", got, want)
	}
	abs := filepath.Join(t.TempDir(), "elsewhere.sqlite")
	if got, _ := ws.ResolvePath(abs); got != abs {
		t.Fatalf("absolute path changed: %s", got)
	}
	if got, _ := ws.ResolvePath("  "); got != "" {
		t.Fatalf("blank path = %q, want empty", got)
	}
}

func TestLoadConfigAnchorsPaths(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	t.Setenv("DEALREADY_STORE_BACKEND", "")
	os.Unsetenv("DEALREADY_STORE_BACKEND")
	data := []byte("log_level: debug\nstore:\n  backend: sqlite\n  sqlite_path: data/runs.sqlite\n")
	if err := os.WriteFile(ws.ConfigPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := ws.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got, want := cfg.Store.SQLitePath, filepath.Join(ws.Root, "data", "runs.sqlite"); got != want {
		t.Fatalf("sqlite path = %s, want %s", got, want)
	}
	if got, want := cfg.CatalogDir, filepath.Join(ws.Root, "catalogs"); got != want {
		t.Fatalf("catalog dir = %s, want %s", got, want)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %s", cfg.LogLevel)
	}
	if !ws.Initialized() {
		t.Fatalf("expected initialized workspace")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := os.WriteFile(ws.ConfigPath, []byte("store:\n  backend: etcd\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ws.LoadConfig(); err == nil {
		t.Fatalf("expected invalid backend error")
	}
}
