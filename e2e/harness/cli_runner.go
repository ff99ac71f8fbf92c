package harness

import (
	"bytes"
	"context"
	"time"

	"github.com/dendi/filmscatalog/internal/cli"
)

// CLIResult holds CLI execution results.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CLIRunner executes CLI commands against the harness config.
type CLIRunner struct {
	harness *E2EHarness
}

// Run executes a CLI command with the given arguments.
func (r *CLIRunner) Run(args ...string) (*CLIResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.harness.timeout)
	defer cancel()

	start := time.Now()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := cli.NewRootCommand("test")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", r.harness.configPath}, args...))

	err := cmd.ExecuteContext(ctx)

	result := &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = 1
	}

	return result, err
}

// List runs the list command for kind.
func (r *CLIRunner) List(kind string, opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"list", kind}, opts...)...)
}

// Favorites runs the favorites command for kind.
func (r *CLIRunner) Favorites(kind string, opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"favorites", kind}, opts...)...)
}

// Favorite marks or unmarks an item.
func (r *CLIRunner) Favorite(kind, id string, on bool) (*CLIResult, error) {
	args := []string{"favorite", kind, id}
	if !on {
		args = append(args, "--off")
	}
	return r.Run(args...)
}

// Detail runs the detail command.
func (r *CLIRunner) Detail(kind, id string, opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"detail", kind, id}, opts...)...)
}
