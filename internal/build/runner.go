package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/zjrosen/mobuild/internal/log"
)

// Runner executes a toolchain command synchronously in dir and returns its
// exit status. A non-nil error means the process could not be started or
// was killed; the exit code is then -1.
type Runner interface {
	Run(ctx context.Context, cmd Command, dir string) (int, error)
}

// CommandFactoryFunc creates an exec.Cmd. Tests use it to substitute the
// executable without spawning the real toolchain.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ExecRunnerOption is a functional option for configuring ExecRunner.
type ExecRunnerOption func(*ExecRunner)

// WithStdio overrides the streams the child inherits. Nil leaves the
// corresponding os.Std* stream in place.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) ExecRunnerOption {
	return func(r *ExecRunner) {
		if stdin != nil {
			r.stdin = stdin
		}
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithEnv appends "KEY=VALUE" entries to os.Environ() for the child.
func WithEnv(env []string) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.env = env
	}
}

// WithCommandFactory sets a custom command factory for testing.
func WithCommandFactory(fn CommandFactoryFunc) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.commandFactory = fn
	}
}

// ExecRunner runs commands with os/exec, inheriting the caller's stdio.
type ExecRunner struct {
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	env            []string
	commandFactory CommandFactoryFunc
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates an ExecRunner wired to os.Stdin/Stdout/Stderr.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and blocks until it exits or ctx is done.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, dir string) (int, error) {
	if cmd.Name == "" {
		return -1, fmt.Errorf("runner: executable is required")
	}

	start := time.Now()

	var c *exec.Cmd
	if r.commandFactory != nil {
		c = r.commandFactory(ctx, cmd.Name, cmd.Args...)
	} else {
		// #nosec G204 -- argument vector, no shell interpretation
		c = exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	}
	c.Dir = dir
	c.Stdin = r.stdin
	c.Stdout = r.stdout
	c.Stderr = r.stderr
	if len(r.env) > 0 {
		c.Env = append(os.Environ(), r.env...)
	}

	log.Debug(log.CatExec, "Spawning process", "command", cmd.String(), "workDir", dir)

	err := c.Run()
	duration := time.Since(start)

	if err == nil {
		log.Debug(log.CatExec, "Process exited", "command", cmd.Name, "exitCode", 0, "duration", duration)
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			log.Error(log.CatExec, "Process timed out", "command", cmd.Name, "duration", duration)
			return -1, ErrTimeout
		}
		log.Warn(log.CatExec, "Process cancelled", "command", cmd.Name, "duration", duration)
		return -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		log.Debug(log.CatExec, "Process exited", "command", cmd.Name, "exitCode", exitErr.ExitCode(), "duration", duration)
		return exitErr.ExitCode(), nil
	}

	log.ErrorErr(log.CatExec, "Process failed", err, "command", cmd.Name)
	return -1, fmt.Errorf("running %s: %w", cmd.Name, err)
}
