// Package execx runs external processors and captures their output.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/hupe1980/assetpipe/internal/plugin"
)

// Command describes one invocation of an external tool.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Stdin []byte
}

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes a command. A non-nil error with a non-nil Result means the
// tool ran and exited unsuccessfully.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// OS runs commands with os/exec.
type OS struct{}

// Run resolves the tool on PATH and runs it to completion.
func (OS) Run(ctx context.Context, c Command) (*Result, error) {
	bin, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, plugin.ToolError(c.Name, plugin.ErrToolNotFound)
	}

	cmd := exec.CommandContext(ctx, bin, c.Args...) //nolint:gosec
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return res, fmt.Errorf("%s exited with code %d", c.Name, exitErr.ExitCode())
		}

		return nil, plugin.ToolError(c.Name, runErr)
	}

	return res, nil
}
