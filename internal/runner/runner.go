// Package runner executes one-shot device-bridge commands.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/logging"
)

// CommandError describes a failed one-shot invocation.
// ExitCode is -1 when the process never started or was killed.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Started reports whether the executable was launched at all
func (e *CommandError) Started() bool {
	return e.ExitCode >= 0
}

// Runner runs a command once and captures its stdout.
// Failures are reported on the operator console and returned; no retry.
type Runner struct {
	diag    io.Writer
	logger  *logging.Logger
	timeout time.Duration
}

// New creates a runner. diag receives the one-line operator diagnostic on
// failure; timeout bounds each invocation (0 = no bound).
func New(diag io.Writer, logger *logging.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{diag: diag, logger: logger, timeout: timeout}
}

// Run executes c and returns its stdout. On failure the returned text is
// whatever stdout was captured (empty if the command never started) and the
// error is a *CommandError.
func (r *Runner) Run(ctx context.Context, c adb.Command) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		r.logger.Debug("command completed", map[string]interface{}{
			"command":  c.String(),
			"duration": elapsed.String(),
		})
		return stdout.String(), nil
	}

	cerr := &CommandError{
		Command:  c.String(),
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cerr.Err = fmt.Errorf("timed out after %s: %w", r.timeout, ctx.Err())
	}

	r.report(cerr, elapsed)
	return stdout.String(), cerr
}

func (r *Runner) report(cerr *CommandError, elapsed time.Duration) {
	if r.diag != nil {
		fmt.Fprintf(r.diag, "   command failed: %v\n", cerr)
	}
	r.logger.Warn("command failed", map[string]interface{}{
		"command":   cerr.Command,
		"exit_code": cerr.ExitCode,
		"started":   cerr.Started(),
		"duration":  elapsed.String(),
		"error":     cerr.Err.Error(),
	})
}
