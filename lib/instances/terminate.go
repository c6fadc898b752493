package instances

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/logger"
)

// terminateInstance removes the container and marks the instance
// terminated. Repeated calls succeed.
func (m *manager) terminateInstance(ctx context.Context, id, owner string) (*Instance, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	ctx, span := m.tracer.Start(ctx, "TerminateInstance")
	defer span.End()

	unlock := m.locks.Lock(id)
	defer unlock()

	inst, err := m.store.get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if isTerminalStatus(inst.Status) {
		log.DebugContext(ctx, "instance already terminated", "instance_id", id)
		return inst, nil
	}

	log.InfoContext(ctx, "terminating instance", "instance_id", id, "container_ref", inst.ContainerRef)

	// Removal is best effort: the record goes terminal either way.
	if inst.ContainerRef != "" {
		err := m.runtime.Remove(ctx, inst.ContainerRef, true)
		if err != nil && !errors.Is(err, engine.ErrNotFound) {
			log.WarnContext(ctx, "failed to remove container", "instance_id", id, "container_ref", inst.ContainerRef, "error", err)
		}
	}
	if dir, err := m.paths.ContainerVolumesDir(inst.ContainerName); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			log.WarnContext(ctx, "failed to remove volume dir", "instance_id", id, "path", dir, "error", err)
		}
	}

	prev := inst.Status
	inst.Status = StatusTerminated
	if err := m.save(ctx, inst, prev); err != nil {
		m.recordDuration(ctx, "terminate", start, "failed")
		return nil, fmt.Errorf("save instance: %w", err)
	}

	m.recordDuration(ctx, "terminate", start, "success")
	log.InfoContext(ctx, "instance terminated", "instance_id", id, "duration", time.Since(start))
	return inst, nil
}
