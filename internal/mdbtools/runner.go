package mdbtools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner is the narrow capability the Toolset needs from the operating
// system: run a program to completion and hand back everything it printed.
// Tests substitute an in-memory implementation.
type Runner interface {
	// Run executes name with args and waits for it to exit.
	// A non-nil error means the program could not be started or did not
	// exit cleanly; Result is still returned when output was captured.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// Result is the captured outcome of one invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecRunner implements Runner with os/exec. Output is fully buffered.
type ExecRunner struct {
	// Dir is the working directory of the child; empty means the caller's.
	Dir string

	// Env, when non-nil, replaces the child's environment.
	Env []string
}

// Run starts a fresh child process for every call.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, err
	default:
		// Never started (missing binary, permissions, cancelled before start).
		res.ExitCode = -1
		return res, err
	}
}
