// Package ports picks free host ports for template-declared container ports.
package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/logger"
)

// Window is how far past a declared port the allocator searches.
const Window = 1000

// ErrNoPortAvailable is returned when every port in a declared port's window
// is taken.
var ErrNoPortAvailable = errors.New("no port available")

// Allocate returns one host port per declared port, in declaration order.
// Each result is the lowest p' in [p, p+Window) that is not in used and not
// already handed out earlier in the same call. used is not modified.
func Allocate(declared []int, used map[int]bool) ([]int, error) {
	claimed := make(map[int]bool, len(declared))
	result := make([]int, 0, len(declared))

	for _, p := range declared {
		port, ok := nextFree(p, used, claimed)
		if !ok {
			return nil, fmt.Errorf("%w: range %d-%d exhausted", ErrNoPortAvailable, p, p+Window-1)
		}
		claimed[port] = true
		result = append(result, port)
	}
	return result, nil
}

func nextFree(base int, used, claimed map[int]bool) (int, bool) {
	for candidate := base; candidate < base+Window && candidate <= 65535; candidate++ {
		if used[candidate] || claimed[candidate] {
			continue
		}
		return candidate, true
	}
	return 0, false
}

// Runtime is the slice of the engine the allocator needs.
type Runtime interface {
	ListContainers(ctx context.Context, all bool) ([]engine.Snapshot, error)
	Inspect(ctx context.Context, ref string) (*engine.ContainerState, error)
}

// Claims reports host ports owned by records that may not have a container
// the runtime can show yet.
type Claims interface {
	ClaimedPorts(ctx context.Context) ([]int, error)
}

// ClaimsFunc adapts a function to Claims.
type ClaimsFunc func(ctx context.Context) ([]int, error)

func (f ClaimsFunc) ClaimedPorts(ctx context.Context) ([]int, error) {
	return f(ctx)
}

// Lease holds allocated ports out of later allocations until released. The
// holder releases once the ports are visible elsewhere, either bound by a
// created container or recorded on a persisted instance.
type Lease struct {
	Ports []int

	once    sync.Once
	release func()
}

// Release returns the leased ports to the pool. Safe to call more than once
// and on a nil Lease.
func (l *Lease) Release() {
	if l == nil || l.release == nil {
		return
	}
	l.once.Do(l.release)
}

// Allocator hands out host ports that are neither bound nor leased.
// Allocations are serialized.
type Allocator struct {
	runtime Runtime

	mu       sync.Mutex
	reserved map[int]bool
}

// NewAllocator returns an Allocator backed by runtime.
func NewAllocator(runtime Runtime) *Allocator {
	return &Allocator{runtime: runtime, reserved: make(map[int]bool)}
}

// Allocate picks ports for declared and leases them. claims may be nil.
func (a *Allocator) Allocate(ctx context.Context, declared []int, claims Claims) (*Lease, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	used, err := a.usedPorts(ctx, claims)
	if err != nil {
		return nil, err
	}
	for p := range a.reserved {
		used[p] = true
	}

	ports, err := Allocate(declared, used)
	if err != nil {
		return nil, err
	}
	for _, p := range ports {
		a.reserved[p] = true
	}
	logger.FromContext(ctx).DebugContext(ctx, "allocated host ports",
		"declared", declared,
		"allocated", ports,
		"in_use", len(used))

	return &Lease{Ports: ports, release: func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for _, p := range ports {
			delete(a.reserved, p)
		}
	}}, nil
}

// Reserved returns how many ports are currently leased.
func (a *Allocator) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reserved)
}

// usedPorts collects ports bound by every container, stopped ones included,
// plus the ones claims reports. List output only carries bindings for
// running containers, so stopped ones are inspected for their requested
// bindings.
func (a *Allocator) usedPorts(ctx context.Context, claims Claims) (map[int]bool, error) {
	containers, err := a.runtime.ListContainers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	used := make(map[int]bool)
	for _, c := range containers {
		ports := c.Ports
		if !c.Running {
			state, err := a.runtime.Inspect(ctx, c.ID)
			if errors.Is(err, engine.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("inspect container %s: %w", c.ID, err)
			}
			ports = state.Ports
		}
		for _, p := range ports {
			used[p] = true
		}
	}

	if claims != nil {
		claimed, err := claims.ClaimedPorts(ctx)
		if err != nil {
			return nil, fmt.Errorf("claimed ports: %w", err)
		}
		for _, p := range claimed {
			used[p] = true
		}
	}
	return used, nil
}
