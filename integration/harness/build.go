package harness

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// BinaryEnv points the harness at a prebuilt binary instead of building one.
const BinaryEnv = "DEALREADY_TEST_BINARY"

var (
	buildOnce sync.Once
	buildPath string
	buildErr  error

	rootOnce sync.Once
	rootPath string
	rootErr  error
)

// RepoRoot returns the module root, located from this file's path.
func RepoRoot(t *testing.T) string {
	t.Helper()
	rootOnce.Do(func() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			rootErr = fmt.Errorf("runtime.Caller failed")
			return
		}
		root := filepath.Dir(filepath.Dir(filepath.Dir(file)))
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
			rootErr = fmt.Errorf("verify repo root: %w", err)
			return
		}
		rootPath = root
	})
	if rootErr != nil {
		t.Fatalf("resolve repo root: %v", rootErr)
	}
	return rootPath
}

// BuildBinary compiles ./cmd/dealready once per test run and returns its path.
func BuildBinary(t *testing.T) string {
	t.Helper()
	if prebuilt := os.Getenv(BinaryEnv); prebuilt != "" {
		return prebuilt
	}
	root := RepoRoot(t)

	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "dealready-bin-")
		if err != nil {
			buildErr = fmt.Errorf("create temp dir: %w", err)
			return
		}
		out := filepath.Join(dir, "dealready")
		cmd := exec.Command("go", "build", "-trimpath", "-o", out, "./cmd/dealready")
		cmd.Dir = root
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			buildErr = fmt.Errorf("go build failed: %w\nstderr:\n%s", err, stderr.String())
			return
		}
		buildPath = out
	})

	if buildErr != nil {
		t.Fatalf("build dealready binary: %v", buildErr)
	}
	return buildPath
}
