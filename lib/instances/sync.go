package instances

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/logger"
	"github.com/samber/lo"
)

// needsSync reports whether inst has a container the runtime can be asked
// about.
func needsSync(inst *Instance) bool {
	return inst.ContainerRef != "" && !isTerminalStatus(inst.Status)
}

// syncLocked overwrites inst with the runtime's view. Caller holds the
// instance lock.
func (m *manager) syncLocked(ctx context.Context, inst *Instance) (*Instance, error) {
	if !needsSync(inst) {
		return inst, nil
	}

	state, err := m.runtime.Inspect(ctx, inst.ContainerRef)
	if errors.Is(err, engine.ErrNotFound) {
		m.terminateGone(ctx, inst)
		return inst, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}

	prev := inst.Status
	inst.Status = runStatus(state.Running)
	portsChanged := m.applyPorts(inst, state.Ports)
	if inst.Status == prev && !portsChanged {
		return inst, nil
	}

	if err := m.save(ctx, inst, prev); err != nil {
		return nil, fmt.Errorf("save instance: %w", err)
	}
	logger.FromContext(ctx).InfoContext(ctx, "instance status reconciled",
		"instance_id", inst.ID,
		"from", prev,
		"to", inst.Status)
	return inst, nil
}

// lockedSync reloads inst under its lock and syncs it. A runtime transport
// failure returns the persisted record.
func (m *manager) lockedSync(ctx context.Context, inst *Instance) (*Instance, error) {
	unlock := m.locks.Lock(inst.ID)
	defer unlock()

	current, err := m.store.get(ctx, inst.ID, "")
	if err != nil {
		return nil, err
	}
	synced, err := m.syncLocked(ctx, current)
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "runtime unavailable, serving persisted instance",
			"instance_id", inst.ID, "error", err)
		return current, nil
	}
	return synced, nil
}

func (m *manager) getInstance(ctx context.Context, id, owner string) (*Instance, error) {
	inst, err := m.store.get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !needsSync(inst) {
		return inst, nil
	}
	return m.lockedSync(ctx, inst)
}

// listInstances compares one container listing against the owner's records
// and only inspects the ones that disagree.
func (m *manager) listInstances(ctx context.Context, owner string) ([]Instance, error) {
	log := logger.FromContext(ctx)

	records, err := m.store.list(ctx, owner)
	if err != nil {
		return nil, err
	}

	snapshots, err := m.runtime.ListContainers(ctx, true)
	if err != nil {
		log.WarnContext(ctx, "runtime unavailable, listing persisted instances", "owner_id", owner, "error", err)
		return derefAll(records), nil
	}
	byID := lo.KeyBy(snapshots, func(s engine.Snapshot) string { return s.ID })

	out := make([]Instance, 0, len(records))
	for _, inst := range records {
		if needsSync(inst) {
			snap, ok := byID[inst.ContainerRef]
			if !ok || runStatus(snap.Running) != inst.Status {
				synced, err := m.lockedSync(ctx, inst)
				if err != nil {
					return nil, err
				}
				inst = synced
			}
		}
		out = append(out, *inst)
	}
	return out, nil
}

func (m *manager) syncAll(ctx context.Context) error {
	live, err := m.store.listLive(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, inst := range live {
		if inst.ContainerRef == "" {
			continue
		}
		if _, err := m.SyncStatus(ctx, inst.ID); err != nil {
			if errors.Is(err, engine.ErrUnavailable) {
				return err
			}
			errs = append(errs, fmt.Errorf("sync %s: %w", inst.ID, err))
		}
	}
	return errors.Join(errs...)
}

// minShortRef is the shortest container ID prefix accepted as a ref.
const minShortRef = 12

func (m *manager) resolveContainer(ctx context.Context, owner, ref string) (*Instance, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty container ref", ErrNotFound)
	}
	records, err := m.store.list(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, inst := range records {
		if !needsSync(inst) {
			continue
		}
		if inst.ContainerRef == ref || inst.ContainerName == ref || inst.ID == ref ||
			(len(ref) >= minShortRef && strings.HasPrefix(inst.ContainerRef, ref)) {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("%w: no live instance for container %s", ErrNotFound, ref)
}

func derefAll(records []*Instance) []Instance {
	return lo.Map(records, func(inst *Instance, _ int) Instance { return *inst })
}
