package instances

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/nrednav/cuid2"
	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/logger"
	"github.com/onkernel/hypedesk/lib/ports"
	"github.com/onkernel/hypedesk/lib/templates"
)

// Container labels
const (
	LabelInstance = "hypedesk.instance"
	LabelOwner    = "hypedesk.owner"
	LabelTemplate = "hypedesk.template"
)

// containerName is <template>-<first 8 chars of the instance ID>.
func containerName(templateID, id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return templateID + "-" + short
}

func (m *manager) createInstance(ctx context.Context, req CreateInstanceRequest) (*Instance, error) {
	log := logger.FromContext(ctx)

	// 1. Validate template and resources before touching the runtime
	tmpl, ok := m.catalog.Get(req.TemplateID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", ErrInvalidTemplate, req.TemplateID)
	}
	resources, err := resolveResources(req.Resources, tmpl.Resources)
	if err != nil {
		return nil, err
	}

	// 2. Build the pending record
	id := cuid2.Generate()
	name := req.Name
	if name == "" {
		name = tmpl.Name
	}
	inst := &Instance{
		ID:            id,
		OwnerID:       req.OwnerID,
		Name:          name,
		TemplateID:    tmpl.ID,
		Status:        StatusPending,
		ContainerName: containerName(tmpl.ID, id),
		CreatedAt:     time.Now().UTC(),
		Ports:         []int{},
		Resources:     resources,
	}

	// 3. Persist before returning so the caller can poll it
	if err := m.save(ctx, inst, ""); err != nil {
		log.ErrorContext(ctx, "failed to persist pending instance", "instance_id", id, "error", err)
		return nil, fmt.Errorf("save instance: %w", err)
	}
	log.InfoContext(ctx, "instance accepted",
		"instance_id", id,
		"owner_id", req.OwnerID,
		"template_id", tmpl.ID,
		"container_name", inst.ContainerName)

	// 4. Provision in the background, detached from the request
	bgCtx := logger.AddToContext(context.Background(), log)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.reconcileCreate(bgCtx, id)
	}()

	return inst, nil
}

// reconcileCreate advances a pending instance to stopped/running, or to
// terminated on any failure. Failures are not retried.
func (m *manager) reconcileCreate(ctx context.Context, id string) {
	start := time.Now()
	log := logger.FromContext(ctx)

	ctx, span := m.tracer.Start(ctx, "ReconcileCreate")
	defer span.End()

	unlock := m.locks.Lock(id)
	defer unlock()

	inst, err := m.store.get(ctx, id, "")
	if err != nil {
		log.ErrorContext(ctx, "failed to load pending instance", "instance_id", id, "error", err)
		return
	}
	if inst.Status != StatusPending {
		log.InfoContext(ctx, "instance left pending before provisioning, skipping", "instance_id", id, "status", inst.Status)
		return
	}

	// release runs after the save below so the adopted container or the
	// leased ports are visible to other creations before they are let go.
	release, err := m.provision(ctx, inst)
	defer release()
	if err != nil {
		log.ErrorContext(ctx, "instance creation failed",
			"instance_id", id,
			"template_id", inst.TemplateID,
			"error", err)
		inst.Status = StatusTerminated
		if saveErr := m.save(ctx, inst, StatusPending); saveErr != nil {
			log.ErrorContext(ctx, "failed to persist failed instance", "instance_id", id, "error", saveErr)
		}
		m.recordDuration(ctx, "create", start, "failed")
		return
	}

	if err := m.save(ctx, inst, StatusPending); err != nil {
		log.ErrorContext(ctx, "failed to persist provisioned instance", "instance_id", id, "error", err)
		return
	}
	m.recordDuration(ctx, "create", start, "success")
	log.InfoContext(ctx, "instance provisioned",
		"instance_id", id,
		"container_ref", inst.ContainerRef,
		"status", inst.Status,
		"ports", inst.Ports,
		"duration", time.Since(start))
}

// provision fills in inst's container fields, adopting the template's
// canonical container when it exists and is unclaimed. The returned release
// func is never nil; the caller runs it once inst is persisted.
func (m *manager) provision(ctx context.Context, inst *Instance) (func(), error) {
	log := logger.FromContext(ctx)
	noop := func() {}

	tmpl, ok := m.catalog.Get(inst.TemplateID)
	if !ok {
		return noop, fmt.Errorf("%w: template %q no longer in catalog", ErrInvalidTemplate, inst.TemplateID)
	}

	// 1. Adopt a pre-provisioned singleton
	if tmpl.CanonicalName != "" {
		release, adopted, err := m.adopt(ctx, inst, tmpl)
		if err != nil {
			return noop, err
		}
		if adopted {
			return release, nil
		}
	}

	// 2. Lease host ports
	lease, err := m.allocator.Allocate(ctx, tmpl.Ports, ports.ClaimsFunc(m.store.livePorts))
	if err != nil {
		return noop, fmt.Errorf("allocate ports: %w", err)
	}
	hostPorts := lease.Ports
	bindings := make([]engine.PortBinding, len(tmpl.Ports))
	for i, p := range tmpl.Ports {
		bindings[i] = engine.PortBinding{ContainerPort: p, HostPort: hostPorts[i]}
	}

	// 3. Volumes live under the data dir, one directory per container
	binds := make([]string, 0, len(tmpl.Volumes))
	for _, v := range tmpl.Volumes {
		src, err := m.paths.VolumeSource(inst.ContainerName, v.Source)
		if err != nil {
			lease.Release()
			return noop, fmt.Errorf("resolve volume %s: %w", v.Source, err)
		}
		if err := os.MkdirAll(src, 0755); err != nil {
			lease.Release()
			return noop, fmt.Errorf("create volume dir: %w", err)
		}
		bind := src + ":" + v.Target
		if v.ReadOnly {
			bind += ":ro"
		}
		binds = append(binds, bind)
	}

	// 4. Create
	ref, err := m.runtime.CreateContainer(ctx, engine.CreateRequest{
		Image:        tmpl.Image,
		Name:         inst.ContainerName,
		Env:          tmpl.Env,
		ExposedPorts: tmpl.Ports,
		PortBindings: bindings,
		Binds:        binds,
		Labels: map[string]string{
			LabelInstance: inst.ID,
			LabelOwner:    inst.OwnerID,
			LabelTemplate: tmpl.ID,
		},
		RestartPolicy: engine.RestartUnlessStopped,
	})
	if err != nil {
		lease.Release()
		return noop, fmt.Errorf("create container: %w", err)
	}

	inst.ContainerRef = ref
	inst.Status = StatusStopped
	inst.Ports = hostPorts
	inst.AccessURL = accessURL(tmpl, hostPorts)
	log.DebugContext(ctx, "created container", "instance_id", inst.ID, "container_ref", ref)
	return lease.Release, nil
}

// adopt binds inst to the template's canonical container. Only the first
// live instance to find it gets it; later ones get their own container.
// Adoption of one canonical name is serialized: on success the returned
// release func holds that lock until the caller has persisted inst.
func (m *manager) adopt(ctx context.Context, inst *Instance, tmpl templates.Template) (func(), bool, error) {
	log := logger.FromContext(ctx)

	unlock := m.locks.Lock("adopt:" + tmpl.CanonicalName)

	state, err := m.runtime.Inspect(ctx, tmpl.CanonicalName)
	if errors.Is(err, engine.ErrNotFound) {
		unlock()
		return nil, false, nil
	}
	if err != nil {
		unlock()
		return nil, false, fmt.Errorf("inspect canonical container %s: %w", tmpl.CanonicalName, err)
	}

	claimed, err := m.store.findLiveByContainerRef(ctx, state.ID)
	if err != nil {
		unlock()
		return nil, false, err
	}
	if len(claimed) > 0 {
		unlock()
		log.InfoContext(ctx, "canonical container already adopted, creating a new one",
			"instance_id", inst.ID,
			"container_name", tmpl.CanonicalName,
			"adopted_by", claimed[0].ID)
		return nil, false, nil
	}

	inst.ContainerRef = state.ID
	inst.Status = runStatus(state.Running)
	inst.Ports = nonNil(state.Ports)
	inst.AccessURL = accessURL(tmpl, state.Ports)
	if state.Running {
		now := time.Now().UTC()
		inst.LastStartedAt = &now
	}
	log.InfoContext(ctx, "adopted canonical container",
		"instance_id", inst.ID,
		"container_name", tmpl.CanonicalName,
		"container_ref", state.ID,
		"running", state.Running)
	return unlock, true, nil
}

// accessURL renders the template's access URL with the first bound port.
func accessURL(tmpl templates.Template, hostPorts []int) string {
	if len(hostPorts) == 0 {
		return ""
	}
	return tmpl.RenderAccessURL(hostPorts[0])
}

// resolveResources fills empty fields from the template default and checks
// that everything set parses.
func resolveResources(req Resources, defaults templates.Resources) (Resources, error) {
	out := Resources{
		CPU:     firstNonEmpty(req.CPU, defaults.CPU),
		Memory:  firstNonEmpty(req.Memory, defaults.Memory),
		Storage: firstNonEmpty(req.Storage, defaults.Storage),
	}

	if out.CPU != "" {
		cpu, err := strconv.ParseFloat(out.CPU, 64)
		if err != nil || cpu <= 0 {
			return Resources{}, fmt.Errorf("%w: cpu %q is not a positive number", ErrInvalidResources, out.CPU)
		}
	}
	for field, value := range map[string]string{"memory": out.Memory, "storage": out.Storage} {
		if value == "" {
			continue
		}
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(value)); err != nil || size == 0 {
			return Resources{}, fmt.Errorf("%w: %s %q is not a size", ErrInvalidResources, field, value)
		}
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
