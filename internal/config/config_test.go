package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("sandbox")

	if cfg.ContainerName != "sandbox" {
		t.Errorf("container name = %q", cfg.ContainerName)
	}
	if cfg.CPUQuota != 50000 {
		t.Errorf("cpu_quota = %d, want 50000", cfg.CPUQuota)
	}
	if cfg.DefaultTimeout != 20 {
		t.Errorf("default_timeout = %d, want 20", cfg.DefaultTimeout)
	}
	if cfg.MemoryLimit != "100m" {
		t.Errorf("memory_limit = %q, want 100m", cfg.MemoryLimit)
	}
	if cfg.MemswapLimit != "512m" {
		t.Errorf("memswap_limit = %q, want 512m", cfg.MemswapLimit)
	}
	if len(cfg.DependenciesWhitelist) != 1 || cfg.DependenciesWhitelist[0] != "*" {
		t.Errorf("whitelist = %v, want [*]", cfg.DependenciesWhitelist)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidateRequiresContainerName(t *testing.T) {
	cfg := Default("")
	if err := cfg.Validate(); err == nil {
		t.Error("empty container_name should fail validation")
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	cfg := Default("sandbox")
	cfg.DefaultTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero default_timeout should fail validation")
	}
}

func TestTimeout(t *testing.T) {
	cfg := Default("sandbox")
	cfg.DefaultTimeout = 5
	if got := cfg.Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
}
