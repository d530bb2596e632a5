package main

import (
	"context"
	"fmt"

	"github.com/michaelbrown/agentrun/internal/config"
	"github.com/michaelbrown/agentrun/internal/container"
	"github.com/michaelbrown/agentrun/internal/runner"
)

// buildRunner loads config, connects to the container, and constructs the
// execution pipeline. Shared by serve, run, and repl.
func buildRunner(ctx context.Context) (*config.Config, *runner.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if containerFlag != "" {
		cfg.Runner.ContainerName = containerFlag
	}
	if err := cfg.Runner.Validate(); err != nil {
		return nil, nil, err
	}

	adapter, err := container.NewDockerAdapter(ctx, cfg.Runner.ContainerName)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to container %q: %w", cfg.Runner.ContainerName, err)
	}

	r, err := runner.New(ctx, cfg.Runner, adapter)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r, nil
}
