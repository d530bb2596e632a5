package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Call is one recorded adapter operation on a Fake.
type Call struct {
	Op    string // "exec", "copy_in", "remove_path", "reconfigure", "stats"
	Args  []string
	Start time.Time
	End   time.Time
}

// Fake is an in-memory Adapter for tests. It records every call with
// entry/exit timestamps, keeps a fake container filesystem, and emulates
// enough of pip and the interpreter for the pipeline to run end to end.
//
// The zero value is not usable; call NewFake.
type Fake struct {
	mu sync.Mutex

	// Files is the fake container filesystem: path -> contents.
	Files map[string][]byte

	// Installed is the set of packages pip believes are present.
	Installed map[string]bool

	// AppliedLimits holds the last Reconfigure call.
	AppliedLimits Limits

	// StatsValue is returned by Stats.
	StatsValue Stats

	// RunPython, when set, produces the result of interpreting a script.
	// It receives the script source as copied in. When nil, scripts run
	// with empty output and exit 0.
	RunPython func(source string) ExecResult

	// FailInstallOf makes pip install of the named packages exit non-zero.
	FailInstallOf map[string]bool

	// ExecDelay, when non-zero, is slept inside every Exec call. Useful
	// for asserting serialization of installer invocations.
	ExecDelay time.Duration

	// Err, when set, is returned by every operation. Simulates an
	// unreachable runtime.
	Err error

	calls []Call
}

// NewFake returns a Fake with a healthy default stats reading.
func NewFake() *Fake {
	return &Fake{
		Files:         make(map[string][]byte),
		Installed:     make(map[string]bool),
		FailInstallOf: make(map[string]bool),
		StatsValue: Stats{
			CPUPercent:    1.0,
			MemUsedBytes:  10 << 20,
			MemLimitBytes: 100 << 20,
		},
	}
}

// Calls returns a copy of the recorded call log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf returns the recorded calls matching op.
func (f *Fake) CallsOf(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(op string, args []string, start time.Time) {
	f.calls = append(f.calls, Call{Op: op, Args: args, Start: start, End: time.Now()})
}

func (f *Fake) Exec(ctx context.Context, cmd []string, workdir string) (ExecResult, error) {
	start := time.Now()
	if f.ExecDelay > 0 {
		select {
		case <-time.After(f.ExecDelay):
		case <-ctx.Done():
			return ExecResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exec", cmd, start)
	if f.Err != nil {
		return ExecResult{}, f.Err
	}
	return f.dispatch(cmd), nil
}

// dispatch emulates the handful of commands the pipeline issues.
// Callers hold f.mu.
func (f *Fake) dispatch(cmd []string) ExecResult {
	if len(cmd) == 0 {
		return ExecResult{ExitCode: 127, Stderr: "empty command"}
	}

	switch cmd[0] {
	case "pip":
		return f.pip(cmd[1:])
	case "python", "python3":
		if len(cmd) < 2 {
			return ExecResult{ExitCode: 2, Stderr: "python3: missing script"}
		}
		src, ok := f.Files[cmd[1]]
		if !ok {
			return ExecResult{
				ExitCode: 2,
				Stderr:   fmt.Sprintf("python3: can't open file '%s': [Errno 2] No such file or directory\n", cmd[1]),
			}
		}
		if f.RunPython != nil {
			return f.RunPython(string(src))
		}
		return ExecResult{}
	case "rm":
		for _, arg := range cmd[1:] {
			if !strings.HasPrefix(arg, "-") {
				delete(f.Files, arg)
			}
		}
		return ExecResult{}
	case "pkill":
		return ExecResult{}
	default:
		return ExecResult{ExitCode: 127, Stderr: fmt.Sprintf("sh: %s: not found\n", cmd[0])}
	}
}

func (f *Fake) pip(args []string) ExecResult {
	if len(args) == 0 {
		return ExecResult{ExitCode: 2}
	}
	switch args[0] {
	case "show":
		pkg := args[len(args)-1]
		if f.Installed[pkg] {
			return ExecResult{Stdout: "Name: " + pkg + "\n"}
		}
		return ExecResult{ExitCode: 1, Stderr: "WARNING: Package(s) not found: " + pkg + "\n"}
	case "install":
		pkg := args[len(args)-1]
		if f.FailInstallOf[pkg] {
			return ExecResult{
				ExitCode: 1,
				Stderr:   "ERROR: Could not find a version that satisfies the requirement " + pkg + "\n",
			}
		}
		f.Installed[pkg] = true
		return ExecResult{Stdout: "Successfully installed " + pkg + "\n"}
	case "uninstall":
		pkg := args[len(args)-1]
		delete(f.Installed, pkg)
		return ExecResult{Stdout: "Successfully uninstalled " + pkg + "\n"}
	default:
		return ExecResult{ExitCode: 2, Stderr: "unknown pip command\n"}
	}
}

func (f *Fake) CopyIn(ctx context.Context, data []byte, destPath string) error {
	start := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("copy_in", []string{destPath}, start)
	if f.Err != nil {
		return f.Err
	}
	f.Files[destPath] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) RemovePath(ctx context.Context, path string) error {
	start := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove_path", []string{path}, start)
	if f.Err != nil {
		return f.Err
	}
	delete(f.Files, path)
	return nil
}

func (f *Fake) Reconfigure(ctx context.Context, limits Limits) error {
	start := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reconfigure", nil, start)
	if f.Err != nil {
		return f.Err
	}
	f.AppliedLimits = limits
	return nil
}

func (f *Fake) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stats", nil, start)
	if f.Err != nil {
		return Stats{}, f.Err
	}
	return f.StatsValue, nil
}
