// Package instances owns the instance state machine: creation, adoption,
// start/stop/restart, termination and reconciliation against the runtime.
//
// The runtime is the source of truth. Persisted records are a cache of the
// last state observed there and are overwritten whenever the two disagree.
package instances

import (
	"context"
	"fmt"
	"sync"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/paths"
	"github.com/onkernel/hypedesk/lib/ports"
	"github.com/onkernel/hypedesk/lib/sqlitepool"
	"github.com/onkernel/hypedesk/lib/templates"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager handles instance lifecycle operations. Every operation taking an
// owner is scoped to it: another owner's instance is reported as not found.
type Manager interface {
	CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error)
	GetInstance(ctx context.Context, id, owner string) (*Instance, error)
	ListInstances(ctx context.Context, owner string) ([]Instance, error)
	StartInstance(ctx context.Context, id, owner string) (*Instance, error)
	StopInstance(ctx context.Context, id, owner string) (*Instance, error)
	RestartInstance(ctx context.Context, id, owner string) (*Instance, error)
	TerminateInstance(ctx context.Context, id, owner string) (*Instance, error)

	// SyncStatus overwrites the persisted status with what the runtime
	// reports, or terminated if the container is gone.
	SyncStatus(ctx context.Context, id string) (*Instance, error)
	// SyncAll runs SyncStatus over every live instance.
	SyncAll(ctx context.Context) error

	// ResolveContainer returns the live instance owned by owner whose
	// container ref, container name or ID is ref.
	ResolveContainer(ctx context.Context, owner, ref string) (*Instance, error)

	// Close waits for in-flight background creations.
	Close() error
}

// PortAllocator hands out host ports for a template's declared ports. The
// returned lease keeps them from being handed out again until released.
type PortAllocator interface {
	Allocate(ctx context.Context, declared []int, claims ports.Claims) (*ports.Lease, error)
}

type manager struct {
	store     *store
	runtime   engine.Engine
	catalog   *templates.Catalog
	allocator PortAllocator
	publisher events.Publisher
	paths     *paths.Paths

	locks   *keyedMutex
	wg      sync.WaitGroup
	metrics *Metrics
	tracer  trace.Tracer
}

// NewManager creates an instance manager. publisher, meter and tracer may
// be nil.
func NewManager(
	pool *sqlitepool.Pool,
	runtime engine.Engine,
	catalog *templates.Catalog,
	allocator PortAllocator,
	publisher events.Publisher,
	p *paths.Paths,
	meter metric.Meter,
	tracer trace.Tracer,
) (Manager, error) {
	m := &manager{
		store:     &store{pool: pool},
		runtime:   runtime,
		catalog:   catalog,
		allocator: allocator,
		publisher: publisher,
		paths:     p,
		locks:     newKeyedMutex(),
		tracer:    tracer,
	}
	if m.tracer == nil {
		m.tracer = noop.NewTracerProvider().Tracer("hypedesk/instances")
	}

	if meter != nil {
		metrics, err := newInstanceMetrics(meter, m)
		if err != nil {
			return nil, fmt.Errorf("create instance metrics: %w", err)
		}
		m.metrics = metrics
	}
	return m, nil
}

func (m *manager) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error) {
	return m.createInstance(ctx, req)
}

func (m *manager) GetInstance(ctx context.Context, id, owner string) (*Instance, error) {
	return m.getInstance(ctx, id, owner)
}

func (m *manager) ListInstances(ctx context.Context, owner string) ([]Instance, error) {
	return m.listInstances(ctx, owner)
}

func (m *manager) StartInstance(ctx context.Context, id, owner string) (*Instance, error) {
	return m.transition(ctx, id, owner, opStart)
}

func (m *manager) StopInstance(ctx context.Context, id, owner string) (*Instance, error) {
	return m.transition(ctx, id, owner, opStop)
}

func (m *manager) RestartInstance(ctx context.Context, id, owner string) (*Instance, error) {
	return m.transition(ctx, id, owner, opRestart)
}

func (m *manager) TerminateInstance(ctx context.Context, id, owner string) (*Instance, error) {
	return m.terminateInstance(ctx, id, owner)
}

func (m *manager) SyncStatus(ctx context.Context, id string) (*Instance, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	inst, err := m.store.get(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return m.syncLocked(ctx, inst)
}

func (m *manager) SyncAll(ctx context.Context) error {
	return m.syncAll(ctx)
}

func (m *manager) ResolveContainer(ctx context.Context, owner, ref string) (*Instance, error) {
	return m.resolveContainer(ctx, owner, ref)
}

func (m *manager) Close() error {
	m.wg.Wait()
	return nil
}

// save persists inst and announces the status when it changed from prev.
func (m *manager) save(ctx context.Context, inst *Instance, prev Status) error {
	if err := m.store.put(ctx, inst); err != nil {
		return err
	}
	if prev != inst.Status {
		m.recordStateTransition(ctx, string(prev), string(inst.Status))
		m.publishStatus(inst)
	}
	return nil
}

func (m *manager) publishStatus(inst *Instance) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(events.New(events.TypeInstanceStatus, events.InstanceStatus{
		InstanceID: inst.ID,
		OwnerID:    inst.OwnerID,
		Status:     string(inst.Status),
	}))
}
