// Package executor copies a screened snippet into the container, runs the
// interpreter under a wall-clock deadline, and guarantees the snippet file
// is gone when it returns.
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/agentrun/internal/container"
)

// TimedOutMessage is the literal outcome for a run that exceeded the
// wall-clock deadline.
const TimedOutMessage = "Execution timed out"

// scriptDir is the on-container working directory for snippets. Expected
// to be tmpfs or equivalent.
const scriptDir = "/tmp"

// Executor runs snippets inside the container.
type Executor struct {
	adapter container.Adapter
	timeout time.Duration
}

// New returns an Executor with the given per-run wall-clock timeout.
func New(adapter container.Adapter, timeout time.Duration) *Executor {
	return &Executor{adapter: adapter, timeout: timeout}
}

// Result is the normalized output of one run.
type Result struct {
	// Outcome is the text returned to the caller: stdout on exit 0,
	// stderr (the interpreter's traceback) on non-zero exit, or
	// TimedOutMessage. Carriage returns and progress noise are preserved.
	Outcome string

	// TimedOut is true when the deadline fired.
	TimedOut bool

	// ExitCode is the interpreter's exit code; -1 on timeout.
	ExitCode int

	// Duration is the observed wall-clock time.
	Duration time.Duration
}

// Run executes the snippet. The source file is removed on every path,
// including timeout and copy/exec errors.
func (e *Executor) Run(ctx context.Context, source string) (Result, error) {
	scriptPath := fmt.Sprintf("%s/script_%s.py", scriptDir,
		strings.ReplaceAll(uuid.New().String(), "-", ""))

	defer e.removeScript(scriptPath)
	if err := e.adapter.CopyIn(ctx, []byte(source), scriptPath); err != nil {
		return Result{}, fmt.Errorf("copying snippet: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	res, err := e.adapter.Exec(runCtx, []string{"python3", scriptPath}, scriptDir)
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		e.killScript(scriptPath)
		return Result{Outcome: TimedOutMessage, TimedOut: true, ExitCode: -1, Duration: elapsed}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("running snippet: %w", err)
	}

	out := res.Stdout
	if res.ExitCode != 0 {
		out = res.Stderr
	}
	return Result{Outcome: out, ExitCode: res.ExitCode, Duration: elapsed}, nil
}

// killScript terminates any process still running the snippet. The exec
// call may have been abandoned mid-flight, so the process group inside the
// container is hunted down by script path.
func (e *Executor) killScript(scriptPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := e.adapter.Exec(ctx, []string{"pkill", "-9", "-f", scriptPath}, ""); err != nil {
		log.Printf("executor: killing %s: %v", scriptPath, err)
	}
}

// removeScript deletes the snippet file, detached from the request context
// so cleanup still happens after cancellation.
func (e *Executor) removeScript(scriptPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.adapter.RemovePath(ctx, scriptPath); err != nil {
		log.Printf("executor: removing %s: %v", scriptPath, err)
	}
}
