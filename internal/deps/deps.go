// Package deps installs and removes Python packages inside the container
// and enforces the dependency whitelist. The package installer is a
// process-global resource inside the container, so every installer
// invocation across all in-flight requests is serialized through a FIFO
// lock; code execution itself runs outside the lock.
package deps

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/michaelbrown/agentrun/internal/container"
)

// ErrNotWhitelisted reports the first package rejected by the whitelist.
type ErrNotWhitelisted struct {
	Package string
}

func (e *ErrNotWhitelisted) Error() string {
	return fmt.Sprintf("dependency %s is not in the whitelist", e.Package)
}

// Manager owns dependency state for one container.
type Manager struct {
	adapter   container.Adapter
	whitelist []string
	cached    map[string]bool

	lock *fifoLock

	// refs counts in-flight holders per transient package. A package is
	// only uninstalled when its last holder releases it. Guarded by lock.
	refs map[string]int
}

// New builds a Manager. Cached dependencies must be covered by the
// whitelist unless the whitelist is the wildcard.
func New(adapter container.Adapter, whitelist, cached []string) (*Manager, error) {
	m := &Manager{
		adapter:   adapter,
		whitelist: whitelist,
		cached:    make(map[string]bool, len(cached)),
		lock:      newFIFOLock(),
		refs:      make(map[string]int),
	}
	for _, dep := range cached {
		m.cached[dep] = true
	}
	if err := m.EnsureAllowed(cached); err != nil {
		return nil, fmt.Errorf("cached_dependencies must be whitelisted: %w", err)
	}
	return m, nil
}

// EnsureAllowed fails with ErrNotWhitelisted for the first package not
// covered by the whitelist. A whitelist of ["*"] permits anything; an
// empty whitelist forbids installs entirely.
func (m *Manager) EnsureAllowed(pkgs []string) error {
	for _, w := range m.whitelist {
		if w == "*" {
			return nil
		}
	}
	allowed := make(map[string]bool, len(m.whitelist))
	for _, w := range m.whitelist {
		allowed[w] = true
	}
	for _, pkg := range pkgs {
		if !allowed[pkg] {
			return &ErrNotWhitelisted{Package: pkg}
		}
	}
	return nil
}

// IsCached reports whether pkg was pre-installed at construction.
func (m *Manager) IsCached(pkg string) bool {
	return m.cached[pkg]
}

// WarmCache installs every cached dependency. Called once at construction
// time; any failure is fatal to the caller.
func (m *Manager) WarmCache(ctx context.Context) error {
	m.lock.Acquire()
	defer m.lock.Release()

	for pkg := range m.cached {
		if err := m.pipInstall(ctx, pkg); err != nil {
			return fmt.Errorf("warming cache: %w", err)
		}
	}
	return nil
}

// Install makes every requested package present in the container and
// returns the list this call is responsible for releasing later. Cached
// packages are skipped and left out of that list; packages already held by
// another in-flight run are refcounted rather than reinstalled. On failure
// the packages this call
// installed are rolled back before the error is returned.
func (m *Manager) Install(ctx context.Context, pkgs []string) ([]string, error) {
	if len(pkgs) == 0 {
		return nil, nil
	}

	m.lock.Acquire()
	defer m.lock.Release()

	var held []string
	for _, pkg := range pkgs {
		if m.cached[pkg] {
			continue
		}

		if m.refs[pkg] == 0 {
			present, err := m.pipPresent(ctx, pkg)
			if err != nil {
				m.rollback(ctx, held)
				return nil, err
			}
			if !present {
				if err := m.pipInstall(ctx, pkg); err != nil {
					m.rollback(ctx, held)
					return nil, err
				}
			}
		}
		m.refs[pkg]++
		held = append(held, pkg)
	}
	return held, nil
}

// Uninstall releases the packages a prior Install returned. Removal is
// best-effort: one failure does not stop the rest, and a package still
// held by a concurrent run stays installed.
func (m *Manager) Uninstall(ctx context.Context, pkgs []string) {
	if len(pkgs) == 0 {
		return
	}

	m.lock.Acquire()
	defer m.lock.Release()

	for _, pkg := range pkgs {
		if m.cached[pkg] {
			continue
		}
		if m.refs[pkg] > 0 {
			m.refs[pkg]--
		}
		if m.refs[pkg] > 0 {
			continue
		}
		delete(m.refs, pkg)
		if err := m.pipUninstall(ctx, pkg); err != nil {
			log.Printf("deps: uninstall %s failed: %v", pkg, err)
		}
	}
}

// rollback removes this call's installs after a partial failure.
// Caller holds the lock.
func (m *Manager) rollback(ctx context.Context, held []string) {
	for _, pkg := range held {
		if m.refs[pkg] > 0 {
			m.refs[pkg]--
		}
		if m.refs[pkg] > 0 {
			continue
		}
		delete(m.refs, pkg)
		if err := m.pipUninstall(ctx, pkg); err != nil {
			log.Printf("deps: rollback of %s failed: %v", pkg, err)
		}
	}
}

// pipPresent asks the installer, not in-process state, whether a package
// is already installed. A prior leaked run or another process may have
// put it there.
func (m *Manager) pipPresent(ctx context.Context, pkg string) (bool, error) {
	res, err := m.adapter.Exec(ctx, []string{"pip", "show", "--quiet", pkg}, "")
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", pkg, err)
	}
	return res.ExitCode == 0, nil
}

func (m *Manager) pipInstall(ctx context.Context, pkg string) error {
	res, err := m.adapter.Exec(ctx, []string{"pip", "install", "--user", pkg}, "")
	if err != nil {
		return fmt.Errorf("installing %s: %w", pkg, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: pip install %s: %s",
			container.ErrExecFailed, pkg, lastLine(res.Stderr))
	}
	return nil
}

func (m *Manager) pipUninstall(ctx context.Context, pkg string) error {
	res, err := m.adapter.Exec(ctx, []string{"pip", "uninstall", "-y", pkg}, "")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: pip uninstall %s: %s",
			container.ErrExecFailed, pkg, lastLine(res.Stderr))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
