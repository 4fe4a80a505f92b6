package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command is a single invocation of an external tool.
type Command struct {
	Name string
	Args []string

	// Capture keeps stdout/stderr in the Result. When false both streams are discarded, unless
	// Stream is set.
	Capture bool

	// Stream forwards output to the runner's Stdout/Stderr. Ignored when Capture is set.
	Stream bool

	// Dir is the working directory; empty means the current one.
	Dir string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a command and blocks until it exits.
//
// A non-zero exit status is reported through Result.ExitCode and is not an error by itself; the
// returned error is only set when the process could not be started (a *LaunchError) or the
// context ended first.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LaunchError is returned when the external tool is missing or cannot be started.
type LaunchError struct {
	Command Command
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError reports a non-zero exit status. Only returned by CheckExit.
type ExitError struct {
	Command Command
	Result  Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command.Name, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// CheckExit converts a non-zero exit status into an *ExitError.
func CheckExit(cmd Command, res Result) error {
	if res.ExitCode != 0 {
		return &ExitError{Command: cmd, Result: res}
	}
	return nil
}

// ExecRunner runs commands on the local host with os/exec.
type ExecRunner struct {
	Logger *slog.Logger

	// Env is appended to the inherited environment.
	Env []string

	// Stdout and Stderr receive the output of streamed commands.
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner(log *slog.Logger) *ExecRunner {
	return &ExecRunner{Logger: log, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	switch {
	case c.Capture:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	case c.Stream && r.Stdout != nil && r.Stderr != nil:
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
	default:
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	}

	if r.Logger != nil {
		r.Logger.Debug("--> Running command", "command", c.String())
	}

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
			}
			if r.Logger != nil {
				r.Logger.Warn("--> Command exited with non-zero status", "command", c.Name, "exitCode", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
			}
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
		}
		return res, &LaunchError{Command: c, Err: err}
	}
	return res, nil
}
