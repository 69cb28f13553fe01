package harness

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Workspace copies integration/fixtures/<name> into a fresh temp directory and
// returns its path. Tests mutate the copy, never the fixture.
func Workspace(t *testing.T, name string) string {
	t.Helper()
	src := filepath.Join(RepoRoot(t), "integration", "fixtures", name)
	dst := filepath.Join(t.TempDir(), name)
	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copy fixture %s: %v", name, err)
	}
	return dst
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return &fs.PathError{Op: "copy", Path: path, Err: fs.ErrInvalid}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
