// Package exec runs the external engines (Demucs, CREPE, Rubber Band,
// FFmpeg) with context cancellation and captured output.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

// Result holds command execution output
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands with context support
type Runner struct {
	// Timeout bounds each command when positive, on top of the caller's context
	Timeout time.Duration
	// Env is appended to the process environment
	Env []string
}

// NewRunner creates a new command runner
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run executes name with args. stdin may be nil. tool and stage label the
// ProcessError returned on failure.
func (r *Runner) Run(ctx context.Context, tool, stage string, stdin io.Reader, name string, args ...string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = stdin
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else if errors.Is(err, osexec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%s: %w", name, apperrors.ErrToolNotInstalled)
		result.ExitCode = -1
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	return result, apperrors.NewProcessError(tool, stage, result.ExitCode, lastLines(result.Stderr, 5), err)
}

// RunModule executes a Python module with the -m flag
func (r *Runner) RunModule(ctx context.Context, tool, stage, python, module string, args ...string) (*Result, error) {
	return r.Run(ctx, tool, stage, nil, python, append([]string{"-m", module}, args...)...)
}

// LookPath reports whether an executable is reachable
func LookPath(name string) (string, error) {
	path, err := osexec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, apperrors.ErrToolNotInstalled)
	}
	return path, nil
}

// CheckPythonModule verifies a Python module can be imported
func (r *Runner) CheckPythonModule(ctx context.Context, python, module string) error {
	if _, err := r.Run(ctx, module, "probe", nil, python, "-c", "import "+module); err != nil {
		return fmt.Errorf("python module %s: %w", module, apperrors.ErrToolNotInstalled)
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
