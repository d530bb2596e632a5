// Package governor validates and applies per-container resource limits and
// gates admission on live utilization. It layers an application-level
// capacity check on top of the runtime's own limits so an overloaded
// container produces a clear error instead of a stall.
package governor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/michaelbrown/agentrun/internal/container"
)

const (
	// cpuThresholdPct is the CPU utilization above which new runs are refused.
	cpuThresholdPct = 80.0

	// memReserveBytes is kept free below the memory limit before admitting a run.
	memReserveBytes = 50 << 20
)

// Limits is the validated resource configuration for the container.
type Limits struct {
	CPUQuota     int64 // microseconds per 100ms period
	MemoryLimit  string
	MemswapLimit string
}

// Governor applies limits and answers capacity queries.
type Governor struct {
	adapter  container.Adapter
	memLimit int64
}

// New validates limits and returns a Governor bound to the adapter.
func New(adapter container.Adapter, limits Limits) (*Governor, error) {
	mem, _, err := Validate(limits)
	if err != nil {
		return nil, err
	}
	return &Governor{adapter: adapter, memLimit: mem}, nil
}

// Validate checks the limit invariants and returns the parsed byte values.
func Validate(limits Limits) (memBytes, memswapBytes int64, err error) {
	if limits.CPUQuota <= 0 {
		return 0, 0, fmt.Errorf("cpu_quota must be a positive integer, got %d", limits.CPUQuota)
	}
	memBytes, err = ParseSize(limits.MemoryLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("memory_limit: %w", err)
	}
	memswapBytes, err = ParseSize(limits.MemswapLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("memswap_limit: %w", err)
	}
	if memswapBytes < memBytes {
		return 0, 0, fmt.Errorf("memswap_limit %s is below memory_limit %s",
			limits.MemswapLimit, limits.MemoryLimit)
	}
	return memBytes, memswapBytes, nil
}

// Apply pushes the limits to the running container.
func (g *Governor) Apply(ctx context.Context, limits Limits) error {
	mem, swap, err := Validate(limits)
	if err != nil {
		return err
	}
	g.memLimit = mem
	return g.adapter.Reconfigure(ctx, container.Limits{
		CPUQuota:     limits.CPUQuota,
		MemoryBytes:  mem,
		MemswapBytes: swap,
	})
}

// HasHeadroom reports whether the container can take another run: CPU at
// or below the threshold and at least memReserveBytes free under the
// memory limit.
func (g *Governor) HasHeadroom(ctx context.Context) (bool, error) {
	stats, err := g.adapter.Stats(ctx)
	if err != nil {
		return false, err
	}
	if stats.CPUPercent > cpuThresholdPct {
		return false, nil
	}
	limit := g.memLimit
	if stats.MemLimitBytes > 0 && stats.MemLimitBytes < limit {
		limit = stats.MemLimitBytes
	}
	if stats.MemUsedBytes > limit-memReserveBytes {
		return false, nil
	}
	return true, nil
}

// ParseSize parses a size string of the form <integer><unit> where unit is
// one of b, k, m, g (case-insensitive, powers of 1024). "100m" = 104857600.
func ParseSize(s string) (int64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid size %q: want <integer><b|k|m|g>", s)
	}

	unit := s[len(s)-1]
	num := s[:len(s)-1]

	var factor int64
	switch unit {
	case 'b', 'B':
		factor = 1
	case 'k', 'K':
		factor = 1 << 10
	case 'm', 'M':
		factor = 1 << 20
	case 'g', 'G':
		factor = 1 << 30
	default:
		return 0, fmt.Errorf("invalid size %q: unit must be one of b, k, m, g", s)
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid size %q: must be positive", s)
	}
	return n * factor, nil
}

// FormatSize renders a byte count in the same format ParseSize accepts,
// using the largest unit that divides evenly.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return strconv.FormatInt(n>>30, 10) + "g"
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + "m"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + "k"
	default:
		return strconv.FormatInt(n, 10) + "b"
	}
}

// String renders the limits for logs.
func (l Limits) String() string {
	return strings.Join([]string{
		"cpu_quota=" + strconv.FormatInt(l.CPUQuota, 10),
		"memory_limit=" + l.MemoryLimit,
		"memswap_limit=" + l.MemswapLimit,
	}, " ")
}
