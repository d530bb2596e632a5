// Package runner glues the pipeline together: screen the snippet, discover
// and whitelist-check its dependencies, wait for container capacity,
// install, execute, and clean up in reverse order on every exit path.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/michaelbrown/agentrun/internal/config"
	"github.com/michaelbrown/agentrun/internal/container"
	"github.com/michaelbrown/agentrun/internal/deps"
	"github.com/michaelbrown/agentrun/internal/executor"
	"github.com/michaelbrown/agentrun/internal/governor"
	"github.com/michaelbrown/agentrun/internal/pyimports"
	"github.com/michaelbrown/agentrun/internal/safety"
)

// Diagnostic outcomes surfaced to the caller as plain strings.
const (
	MsgOverCapacity  = "Container over capacity"
	MsgInstallFailed = "Failed to install dependencies"
)

// Status classifies how one execute finished.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusRejected Status = "rejected"
	StatusTimeout  Status = "timeout"
	StatusFailed   Status = "failed"
)

// Report is the full result of one execute, for callers that record
// history or serve metrics. Execute itself returns only the outcome text.
type Report struct {
	Outcome  string
	Status   Status
	Duration time.Duration
}

// Runner executes untrusted snippets against one pre-existing container.
// Safe for concurrent use; installer invocations are serialized internally,
// executions run in parallel.
type Runner struct {
	cfg     config.RunnerConfig
	adapter container.Adapter
	deps    *deps.Manager
	gov     *governor.Governor
	exec    *executor.Executor

	// capacity polling knobs; fixed defaults, narrowed in tests.
	pollInterval time.Duration
	pollGiveUp   time.Duration
}

// New validates the config, applies resource limits to the container, and
// warms the dependency cache. It fails fast on invalid config or an
// unreachable container.
func New(ctx context.Context, cfg config.RunnerConfig, adapter container.Adapter) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	limits := governor.Limits{
		CPUQuota:     cfg.CPUQuota,
		MemoryLimit:  cfg.MemoryLimit,
		MemswapLimit: cfg.MemswapLimit,
	}
	gov, err := governor.New(adapter, limits)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := gov.Apply(ctx, limits); err != nil {
		return nil, fmt.Errorf("applying limits: %w", err)
	}

	mgr, err := deps.New(adapter, cfg.DependenciesWhitelist, cfg.CachedDependencies)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := mgr.WarmCache(ctx); err != nil {
		return nil, err
	}

	return &Runner{
		cfg:          cfg,
		adapter:      adapter,
		deps:         mgr,
		gov:          gov,
		exec:         executor.New(adapter, cfg.Timeout()),
		pollInterval: time.Second,
		pollGiveUp:   30 * time.Second,
	}, nil
}

// Execute runs the snippet and returns its outcome text. Screening,
// whitelist, capacity and install failures become diagnostic outcome
// strings. An unreachable container is returned as an error at any stage;
// any other adapter failure while the snippet is copied in or run (for
// example a container that no longer exists, or a cancelled ctx) is
// returned as an error as well.
func (r *Runner) Execute(ctx context.Context, source string) (string, error) {
	report, err := r.Run(ctx, source)
	if err != nil {
		return "", err
	}
	return report.Outcome, nil
}

// Run is Execute with the full report.
func (r *Runner) Run(ctx context.Context, source string) (Report, error) {
	start := time.Now()
	report, err := r.run(ctx, source)
	report.Duration = time.Since(start)
	return report, err
}

func (r *Runner) run(ctx context.Context, source string) (Report, error) {
	// 1. Screen. Rejection is side-effect free: nothing has touched the
	// container yet.
	if err := safety.Check(source); err != nil {
		r.logFailure("screen", "unsafe_code", nil, err)
		return Report{Outcome: err.Error(), Status: StatusRejected}, nil
	}

	// 2–3. Discover imports, enforce whitelist.
	required := pyimports.Extract(source)
	if err := r.deps.EnsureAllowed(required); err != nil {
		var nw *deps.ErrNotWhitelisted
		if errors.As(err, &nw) {
			r.logFailure("deps_check", "dependency_blocked", required, err)
			return Report{
				Outcome: "Dependency not in whitelist: " + nw.Package,
				Status:  StatusRejected,
			}, nil
		}
		return Report{}, err
	}

	// 4. Wait for capacity.
	if err := r.waitForCapacity(ctx); err != nil {
		if errors.Is(err, container.ErrUnreachable) {
			r.logFailure("wait_capacity", "container_unreachable", required, err)
			return Report{}, err
		}
		r.logFailure("wait_capacity", "capacity_exhausted", required, err)
		return Report{Outcome: MsgOverCapacity, Status: StatusFailed}, nil
	}

	// 5. Install transient dependencies.
	installed, err := r.deps.Install(ctx, required)
	if err != nil {
		if errors.Is(err, container.ErrUnreachable) {
			r.logFailure("install", "container_unreachable", required, err)
			return Report{}, err
		}
		r.logFailure("install", "install_failed", required, err)
		return Report{Outcome: MsgInstallFailed, Status: StatusFailed}, nil
	}
	// 7. Uninstall runs on every path out of execution.
	defer r.deps.Uninstall(context.WithoutCancel(ctx), installed)

	// 6. Execute. The executor owns snippet-file cleanup.
	res, err := r.exec.Run(ctx, source)
	if err != nil {
		r.logFailure("execute", "container_error", installed, err)
		return Report{}, err
	}

	switch {
	case res.TimedOut:
		r.logFailure("execute", "execution_timeout", installed, errors.New(executor.TimedOutMessage))
		return Report{Outcome: res.Outcome, Status: StatusTimeout}, nil
	case res.ExitCode != 0:
		// Interpreter errors are not errors to the caller — the stderr
		// traceback is the outcome.
		return Report{Outcome: res.Outcome, Status: StatusError}, nil
	default:
		return Report{Outcome: res.Outcome, Status: StatusOK}, nil
	}
}

// waitForCapacity polls the governor until headroom appears or the give-up
// deadline passes.
func (r *Runner) waitForCapacity(ctx context.Context) error {
	deadline := time.Now().Add(r.pollGiveUp)
	for {
		ok, err := r.gov.HasHeadroom(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no capacity after %s", r.pollGiveUp)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// logFailure emits the one structured record every error kind produces.
func (r *Runner) logFailure(phase, kind string, transient []string, err error) {
	log.Printf("runner: kind=%s phase=%s container=%s transient=%v err=%q",
		kind, phase, r.cfg.ContainerName, transient, err)
}

// Config returns the runner's configuration (read-only after construction).
func (r *Runner) Config() config.RunnerConfig {
	return r.cfg
}
