// Package container abstracts the control plane of an already-running
// container. The rest of the system only talks to a container through the
// Adapter interface — never to the runtime directly.
package container

import (
	"context"
	"errors"
)

// Sentinel errors for the adapter failure taxonomy. Callers match with
// errors.Is; everything else coming out of an adapter is wrapped detail.
var (
	// ErrUnreachable means the container runtime itself is not responding.
	// Treated as fatal by the orchestrator.
	ErrUnreachable = errors.New("container runtime unreachable")

	// ErrNotFound means the named container does not exist.
	ErrNotFound = errors.New("container not found")

	// ErrExecFailed means a command that was expected to succeed exited non-zero.
	ErrExecFailed = errors.New("command failed inside container")
)

// ExecResult captures one command run inside the container.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Limits are the resource ceilings applied to the running container.
// CPUQuota is in microseconds per 100ms scheduling period; the byte values
// follow Docker's semantics (memswap >= memory).
type Limits struct {
	CPUQuota     int64
	MemoryBytes  int64
	MemswapBytes int64
}

// Stats is a point-in-time utilization reading.
type Stats struct {
	CPUPercent    float64
	MemUsedBytes  int64
	MemLimitBytes int64
}

// Adapter is the capability layer over a running container: run a command,
// place a file, delete a file, retune limits, read utilization.
type Adapter interface {
	// Exec runs cmd synchronously inside the container and captures both
	// streams and the exit code. A non-zero exit is not an error — the
	// result carries it. Errors mean the command could not be run at all.
	Exec(ctx context.Context, cmd []string, workdir string) (ExecResult, error)

	// CopyIn places data at destPath inside the container. The destination
	// directory is assumed writable.
	CopyIn(ctx context.Context, data []byte, destPath string) error

	// RemovePath deletes a file inside the container. A missing file is
	// not an error.
	RemovePath(ctx context.Context, path string) error

	// Reconfigure applies resource limits to the running container.
	Reconfigure(ctx context.Context, limits Limits) error

	// Stats reads current CPU and memory utilization.
	Stats(ctx context.Context) (Stats, error)
}
