// Package runner executes measured workloads.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result is what the measurement pipeline needs to know about an execution.
type Result struct {
	Success  bool
	ExitCode int    // -1 when the process could not be started or was killed
	Output   string // stdout on success, stderr (or the start error) on failure
	Duration time.Duration
}

// Executor runs a command and reports how it went. Implementations never
// return an error: failures are reported through Result.
type Executor interface {
	Execute(ctx context.Context, command string) Result
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, command string) Result

func (f ExecutorFunc) Execute(ctx context.Context, command string) Result { return f(ctx, command) }

// Shell runs commands through a POSIX shell, like CI job steps.
type Shell struct {
	// Path of the shell; "" means "sh".
	Path string
	// Dir is the working directory; "" means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Execute runs command with "<shell> -c command" and captures its output.
func (s Shell) Execute(ctx context.Context, command string) Result {
	sh := s.Path
	if sh == "" {
		sh = "sh"
	}
	cmd := exec.CommandContext(ctx, sh, "-c", command)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start)}

	switch {
	case err == nil:
		res.Success = true
		res.Output = stdout.String()
	default:
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.Output = stderr.String()
		if res.Output == "" {
			res.Output = err.Error()
		}
	}
	return res
}
