// Package exec runs user-confirmed shell commands with a fixed timeout
// and output-size cap. There is no sandboxing: the human confirmation
// step upstream is the only gate.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner executes confirmed commands through the platform shell.
type Runner struct {
	Timeout        time.Duration
	MaxOutputBytes int
}

// New creates a Runner with the given limits.
func New(timeout time.Duration, maxOutputBytes int) *Runner {
	return &Runner{Timeout: timeout, MaxOutputBytes: maxOutputBytes}
}

// Result is the structured outcome of one command execution. Failures
// are returned as data, never as Go errors: the caller decides whether
// to display them or feed them back for explanation.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code"`
	Success  bool   `json:"success"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Run executes command and waits for completion. Exceeding the timeout
// or the output cap aborts the process and surfaces a failure, not a
// partial success.
func (r *Runner) Run(ctx context.Context, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Success: false, Error: "empty command"}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	stdout := newCapWriter(r.MaxOutputBytes, cancel)
	stderr := newCapWriter(r.MaxOutputBytes, cancel)

	cmd := shellCommand(runCtx, command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case stdout.Truncated() || stderr.Truncated():
		result.Error = fmt.Sprintf("output exceeded %d byte limit, command aborted", r.MaxOutputBytes)
		result.ExitCode = -1
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.Error = fmt.Sprintf("command timed out after %s", r.Timeout)
		result.ExitCode = -1
	case err != nil:
		result.Error = err.Error()
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	default:
		result.Success = true
	}

	log.Debug().
		Str("command", command).
		Bool("success", result.Success).
		Dur("elapsed", elapsed).
		Msg("Command executed")

	return result
}

// capWriter buffers process output up to a byte limit and cancels the
// command context once the limit is hit.
type capWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	cancel    context.CancelFunc
	truncated bool
}

func newCapWriter(limit int, cancel context.CancelFunc) *capWriter {
	return &capWriter{limit: limit, cancel: cancel}
}

func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = true
		w.cancel()
		return len(p), nil
	}
	if len(p) > remaining {
		w.truncated = true
		w.buf.Write(p[:remaining])
		w.cancel()
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *capWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
