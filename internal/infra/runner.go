// Package infra implements infrastructure concerns (filesystem, exec,
// Spotlight, signing, caches).
package infra

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// CombinedOutput runs the command and returns stdout+stderr combined.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes real system commands.
type ExecRunner struct{}

// Output executes a command and returns its stdout.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = nil // prevent any interactive prompts
	return cmd.Output()
}

// CombinedOutput executes a command and returns stdout and stderr combined.
func (r *ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = nil
	return cmd.CombinedOutput()
}

var _ CommandRunner = (*ExecRunner)(nil)
