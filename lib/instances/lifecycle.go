package instances

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/logger"
)

// operation is a user-driven run-state change.
type operation struct {
	name string
	span string
	// running is the run state the container ends up in.
	running bool
	// shortCircuit skips the runtime call when the container is already in
	// the target run state.
	shortCircuit bool
	// stampStart advances LastStartedAt.
	stampStart bool
}

var (
	opStart   = operation{name: "start", span: "StartInstance", running: true, shortCircuit: true, stampStart: true}
	opStop    = operation{name: "stop", span: "StopInstance", running: false, shortCircuit: true}
	opRestart = operation{name: "restart", span: "RestartInstance", running: true, stampStart: true}
)

func (m *manager) act(ctx context.Context, op operation, ref string) error {
	switch op.name {
	case opStart.name:
		return m.runtime.Start(ctx, ref)
	case opStop.name:
		return m.runtime.Stop(ctx, ref)
	case opRestart.name:
		return m.runtime.Restart(ctx, ref)
	}
	return fmt.Errorf("unknown operation %q", op.name)
}

// transition runs start, stop or restart under the instance lock so the
// inspect-then-act sequence cannot interleave with another operation on the
// same instance.
func (m *manager) transition(ctx context.Context, id, owner string, op operation) (*Instance, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	ctx, span := m.tracer.Start(ctx, op.span)
	defer span.End()

	unlock := m.locks.Lock(id)
	defer unlock()

	// 1. Load, scoped to owner
	inst, err := m.store.get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if inst.ContainerRef == "" {
		return nil, fmt.Errorf("%w: instance %s has no container", ErrNotFound, id)
	}
	if isTerminalStatus(inst.Status) {
		return nil, fmt.Errorf("%w: instance %s is terminated", ErrContainerGone, id)
	}
	log.InfoContext(ctx, op.name+" instance", "instance_id", id, "container_ref", inst.ContainerRef, "status", inst.Status)

	// 2. Ask the runtime before acting
	state, err := m.runtime.Inspect(ctx, inst.ContainerRef)
	if errors.Is(err, engine.ErrNotFound) {
		m.recordDuration(ctx, op.name, start, "gone")
		return nil, m.markGone(ctx, inst)
	}
	if err != nil {
		m.recordDuration(ctx, op.name, start, "failed")
		log.ErrorContext(ctx, "failed to inspect container", "instance_id", id, "error", err)
		return nil, fmt.Errorf("inspect container: %w", err)
	}

	prev := inst.Status
	now := time.Now().UTC()

	// 3. Already there: resync only
	if op.shortCircuit && state.Running == op.running {
		inst.Status = runStatus(state.Running)
		if op.stampStart {
			inst.LastStartedAt = &now
		}
		m.applyPorts(inst, state.Ports)
		if err := m.save(ctx, inst, prev); err != nil {
			return nil, fmt.Errorf("save instance: %w", err)
		}
		m.recordDuration(ctx, op.name, start, "noop")
		log.InfoContext(ctx, "instance already in target state", "instance_id", id, "status", inst.Status)
		return inst, nil
	}

	// 4. Act
	if err := m.act(ctx, op, inst.ContainerRef); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			m.recordDuration(ctx, op.name, start, "gone")
			return nil, m.markGone(ctx, inst)
		}
		m.recordDuration(ctx, op.name, start, "failed")
		log.ErrorContext(ctx, "failed to "+op.name+" container", "instance_id", id, "error", err)
		return nil, fmt.Errorf("%s container: %w", op.name, err)
	}

	// 5. Persist
	inst.Status = runStatus(op.running)
	if op.stampStart {
		inst.LastStartedAt = &now
	}
	if err := m.save(ctx, inst, prev); err != nil {
		return nil, fmt.Errorf("save instance: %w", err)
	}
	if op.name == opRestart.name && prev == inst.Status {
		// running -> running is still a transition worth counting
		m.recordStateTransition(ctx, string(prev), string(inst.Status))
	}

	m.recordDuration(ctx, op.name, start, "success")
	log.InfoContext(ctx, "instance "+op.name+" complete", "instance_id", id, "status", inst.Status, "duration", time.Since(start))
	return inst, nil
}

// markGone persists terminated for an instance whose container vanished and
// returns ErrContainerGone. Caller holds the instance lock.
func (m *manager) markGone(ctx context.Context, inst *Instance) error {
	m.terminateGone(ctx, inst)
	return fmt.Errorf("%w: %s", ErrContainerGone, inst.ContainerRef)
}

// terminateGone is markGone for callers that report the vanished container
// as a terminated record rather than an error.
func (m *manager) terminateGone(ctx context.Context, inst *Instance) {
	log := logger.FromContext(ctx)
	log.WarnContext(ctx, "container gone, terminating instance", "instance_id", inst.ID, "container_ref", inst.ContainerRef)

	prev := inst.Status
	inst.Status = StatusTerminated
	if err := m.save(ctx, inst, prev); err != nil {
		log.ErrorContext(ctx, "failed to persist terminated instance", "instance_id", inst.ID, "error", err)
	}
}

// applyPorts records the runtime's host ports on inst and re-renders its
// access URL. Empty ports leave inst alone. Reports whether anything changed.
func (m *manager) applyPorts(inst *Instance, hostPorts []int) bool {
	if len(hostPorts) == 0 || slices.Equal(hostPorts, inst.Ports) {
		return false
	}
	inst.Ports = hostPorts
	if tmpl, ok := m.catalog.Get(inst.TemplateID); ok {
		inst.AccessURL = accessURL(tmpl, hostPorts)
	}
	return true
}
