package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RunnerConfig controls the execution pipeline for one container.
type RunnerConfig struct {
	// ContainerName is the target container identity. Required.
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`

	// CPUQuota is microseconds of CPU per 100ms scheduling period.
	CPUQuota int64 `mapstructure:"cpu_quota" yaml:"cpu_quota"`

	// DefaultTimeout is the wall-clock cap on interpreter execution, in seconds.
	DefaultTimeout int `mapstructure:"default_timeout" yaml:"default_timeout"`

	// MemoryLimit is the RAM ceiling, a size string with unit suffix b|k|m|g.
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit"`

	// MemswapLimit is the combined RAM+swap ceiling; must be >= MemoryLimit.
	MemswapLimit string `mapstructure:"memswap_limit" yaml:"memswap_limit"`

	// DependenciesWhitelist lists allowed packages. ["*"] permits anything
	// installable; an empty list forbids installs entirely.
	DependenciesWhitelist []string `mapstructure:"dependencies_whitelist" yaml:"dependencies_whitelist"`

	// CachedDependencies are installed once at construction and never removed.
	CachedDependencies []string `mapstructure:"cached_dependencies" yaml:"cached_dependencies"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

type Config struct {
	Runner  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// Timeout returns the default execution timeout as a duration.
func (r RunnerConfig) Timeout() time.Duration {
	return time.Duration(r.DefaultTimeout) * time.Second
}

// Validate checks the fields the pipeline depends on before a runner is
// even attempted. Size strings are validated by the governor at
// construction.
func (r RunnerConfig) Validate() error {
	if r.ContainerName == "" {
		return errors.New("container_name is required")
	}
	if r.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive, got %d", r.DefaultTimeout)
	}
	return nil
}

// Load reads agentrun.yaml from the working directory or $HOME/.agentrun,
// applying defaults for everything but container_name. AGENTRUN_* env vars
// override file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("agentrun")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.agentrun")
	v.SetEnvPrefix("agentrun")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No file is fine — env vars and defaults may be enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if name := os.Getenv("AGENTRUN_CONTAINER_NAME"); name != "" {
		cfg.Runner.ContainerName = name
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runner.cpu_quota", 50000)
	v.SetDefault("runner.default_timeout", 20)
	v.SetDefault("runner.memory_limit", "100m")
	v.SetDefault("runner.memswap_limit", "512m")
	v.SetDefault("runner.dependencies_whitelist", []string{"*"})
	v.SetDefault("runner.cached_dependencies", []string{})
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".agentrun", "agentrun.db"))
}

// Default returns a RunnerConfig with the documented defaults applied,
// for embedding the library without a config file.
func Default(containerName string) RunnerConfig {
	return RunnerConfig{
		ContainerName:         containerName,
		CPUQuota:              50000,
		DefaultTimeout:        20,
		MemoryLimit:           "100m",
		MemswapLimit:          "512m",
		DependenciesWhitelist: []string{"*"},
	}
}
