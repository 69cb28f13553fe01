package harness

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Output joins stdout and stderr for failure messages.
func (r Result) Output() string {
	return "stdout:\n" + r.Stdout + "\nstderr:\n" + r.Stderr
}

// CLI runs the dealready binary against one workspace.
type CLI struct {
	t         *testing.T
	bin       string
	workspace string
	env       []string
}

// NewCLI builds the binary (once per test run) and binds it to workspace.
func NewCLI(t *testing.T, workspace string) *CLI {
	t.Helper()
	return &CLI{t: t, bin: BuildBinary(t), workspace: workspace}
}

// WithEnv returns a copy of c that adds KEY=VALUE pairs to the environment.
func (c *CLI) WithEnv(pairs ...string) *CLI {
	clone := *c
	clone.env = append(append([]string{}, c.env...), pairs...)
	return &clone
}

// Run executes the CLI with --workspace and --no-color appended.
func (c *CLI) Run(args ...string) Result {
	c.t.Helper()
	full := append(append([]string{}, args...), "--no-color")
	if c.workspace != "" {
		full = append(full, "--workspace", c.workspace)
	}
	return c.exec(full)
}

// MustRun is Run that fails the test on a non-zero exit code.
func (c *CLI) MustRun(args ...string) Result {
	c.t.Helper()
	res := c.Run(args...)
	if res.Code != 0 {
		c.t.Fatalf("dealready %s exit code %d\n%s", strings.Join(args, " "), res.Code, res.Output())
	}
	return res
}

// RunRaw executes the CLI with exactly args.
func (c *CLI) RunRaw(args ...string) Result {
	c.t.Helper()
	return c.exec(args)
}

func (c *CLI) exec(args []string) Result {
	c.t.Helper()
	cmd := exec.Command(c.bin, args...)
	cmd.Dir = c.t.TempDir()
	cmd.Env = append(os.Environ(), c.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			c.t.Fatalf("run %s: %v", c.bin, err)
		}
		res.Code = ee.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}
