package pkgtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rascalsoftware/rascal-packager/internal/logger"
)

// Runner executes an external tool.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ToolError reports a failed tool invocation.
type ToolError struct {
	// Tool is the executable that failed.
	Tool string
	// Args are the arguments it was called with.
	Args []string
	// ExitCode is the tool's exit status, or -1 when it never ran.
	ExitCode int
	// Err is the underlying error.
	Err error
}

func (e *ToolError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}

	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the external exit status from err.
// It returns 1 for any other non-nil error and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.ExitCode > 0 {
		return toolErr.ExitCode
	}

	return 1
}

// DefaultWaitDelay bounds how long Run waits for output after the tool exits
// or its context ends. Helpers spawned by the tool may keep the pipes open.
const DefaultWaitDelay = 5 * time.Second

// maxLineLength caps a single logged line; longer output is logged in chunks.
const maxLineLength = 64 * 1024

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	// Dir is the working directory of the child process; empty means the current one.
	Dir string
	// WaitDelay overrides DefaultWaitDelay.
	WaitDelay time.Duration
}

// Run starts the tool and waits for it, logging each output line.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	tool := filepath.Base(name)
	ctx = logger.WithKV(ctx, "tool", tool)

	logger.DebugKV(ctx, "Running external tool", "command", name+" "+strings.Join(args, " "))

	stdout := newLineWriter(func(line string) { logger.Info(ctx, line) })
	stderr := newLineWriter(func(line string) { logger.Warn(ctx, line) })

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	err := cmd.Run()

	stdout.Flush()
	stderr.Flush()

	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Tool: tool, Args: args, ExitCode: exitErr.ExitCode(), Err: err}
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		// The tool itself succeeded; a leftover helper still held its output.
		logger.WarnKV(ctx, "Tool output was not closed in time", "wait_delay", cmd.WaitDelay)
		return nil
	}

	return &ToolError{Tool: tool, Args: args, ExitCode: -1, Err: err}
}

// lineWriter splits written bytes into lines and emits each non-blank one.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

// Write never fails so the tool is never blocked on a full pipe.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)

	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}

		w.emitLine(w.buf[:idx])
		w.buf = w.buf[idx+1:]
	}

	for len(w.buf) >= maxLineLength {
		w.emitLine(w.buf[:maxLineLength])
		w.buf = w.buf[maxLineLength:]
	}

	// Drop the consumed prefix so the backing array does not grow forever.
	w.buf = append([]byte(nil), w.buf...)

	return len(p), nil
}

// Flush emits a trailing line without a newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emitLine(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emitLine(line []byte) {
	if text := strings.TrimRight(string(line), " \t\r"); text != "" {
		w.emit(text)
	}
}
