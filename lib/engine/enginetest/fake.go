// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/onkernel/hypedesk/lib/engine"
)

// Container is the fake runtime's record of one container.
type Container struct {
	ID            string
	Name          string
	Image         string
	Running       bool
	Ports         []int
	Env           map[string]string
	Binds         []string
	Labels        map[string]string
	RestartPolicy string
}

// Exec is one exec instance. Remote is the container side of the attached
// stream: writes to it reach the attached client, reads see client input.
type Exec struct {
	ID          string
	ContainerID string
	Config      engine.ExecConfig
	Remote      net.Conn
	Resizes     [][2]uint
}

// Fake is a goroutine-safe in-memory runtime. Error fields inject failures
// into the matching operation.
type Fake struct {
	mu         sync.Mutex
	containers map[string]*Container
	execs      map[string]*Exec
	execOrder  []string
	calls      map[string]int
	nextID     int

	PingErr    error
	ListErr    error
	CreateErr  error
	InspectErr error
	ActionErr  error
	ExecErr    error
	ResizeErr  error

	// BashPath is printed by the bash lookup; empty means bash is absent.
	BashPath string

	// execGate, when set, holds Exec until it is closed.
	execGate chan struct{}
}

var _ engine.Engine = (*Fake)(nil)

// New returns an empty fake runtime.
func New() *Fake {
	return &Fake{
		containers: make(map[string]*Container),
		execs:      make(map[string]*Exec),
		calls:      make(map[string]int),
	}
}

// AddContainer registers an out-of-band container and returns its ID.
func (f *Fake) AddContainer(name, image string, running bool, ports ...int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.containers[id] = &Container{ID: id, Name: name, Image: image, Running: running, Ports: ports}
	return id
}

// Vanish deletes a container behind the orchestrator's back.
func (f *Fake) Vanish(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.lookup(ref); c != nil {
		delete(f.containers, c.ID)
	}
}

// SetRunning flips a container's run state out of band.
func (f *Fake) SetRunning(ref string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.lookup(ref); c != nil {
		c.Running = running
	}
}

// SetPorts replaces a container's host port bindings out of band.
func (f *Fake) SetPorts(ref string, ports ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.lookup(ref); c != nil {
		c.Ports = ports
	}
}

// SetBashPath changes BashPath while the fake is in use.
func (f *Fake) SetBashPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BashPath = path
}

// HoldExecs makes every Exec wait until the returned func is called.
func (f *Fake) HoldExecs() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.execGate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Container returns a copy of the container addressed by ID or name.
func (f *Fake) Container(ref string) (Container, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.lookup(ref)
	if c == nil {
		return Container{}, false
	}
	return *c, true
}

// Len returns the number of containers.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// LastExec returns the most recently created exec, or nil.
func (f *Fake) LastExec() *Exec {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.execOrder) == 0 {
		return nil
	}
	return f.execs[f.execOrder[len(f.execOrder)-1]]
}

// Resizes returns the resize requests recorded for an exec.
func (f *Fake) Resizes(execID string) [][2]uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.execs[execID]; ok {
		return append([][2]uint(nil), e.Resizes...)
	}
	return nil
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

func (f *Fake) ListContainers(ctx context.Context, all bool) ([]engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	// Like the Docker daemon, list output carries published ports only for
	// running containers; Inspect still reports the requested bindings.
	out := make([]engine.Snapshot, 0, len(f.containers))
	for _, c := range f.containers {
		if !all && !c.Running {
			continue
		}
		snap := engine.Snapshot{
			ID:      c.ID,
			Name:    c.Name,
			Image:   c.Image,
			Status:  statusString(c.Running),
			Running: c.Running,
			Ports:   []int{},
		}
		if c.Running {
			snap.Ports = append(snap.Ports, c.Ports...)
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) CreateContainer(ctx context.Context, req engine.CreateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	for _, c := range f.containers {
		if c.Name == req.Name {
			return "", fmt.Errorf("conflict: container name %q already in use", req.Name)
		}
	}

	id := f.newID()
	ports := make([]int, 0, len(req.PortBindings))
	for _, b := range req.PortBindings {
		ports = append(ports, b.HostPort)
	}
	f.containers[id] = &Container{
		ID:            id,
		Name:          req.Name,
		Image:         req.Image,
		Ports:         ports,
		Env:           req.Env,
		Binds:         req.Binds,
		Labels:        req.Labels,
		RestartPolicy: req.RestartPolicy,
	}
	return id, nil
}

func (f *Fake) Inspect(ctx context.Context, ref string) (*engine.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["inspect"]++
	if f.InspectErr != nil {
		return nil, f.InspectErr
	}
	c := f.lookup(ref)
	if c == nil {
		return nil, notFound(ref)
	}
	return &engine.ContainerState{
		ID:      c.ID,
		Name:    c.Name,
		Running: c.Running,
		Status:  strings.ToLower(statusString(c.Running)),
		Ports:   append([]int(nil), c.Ports...),
	}, nil
}

func (f *Fake) Start(ctx context.Context, ref string) error {
	return f.setState("start", ref, true)
}

func (f *Fake) Stop(ctx context.Context, ref string) error {
	return f.setState("stop", ref, false)
}

func (f *Fake) Restart(ctx context.Context, ref string) error {
	return f.setState("restart", ref, true)
}

func (f *Fake) Remove(ctx context.Context, ref string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["remove"]++
	if f.ActionErr != nil {
		return f.ActionErr
	}
	c := f.lookup(ref)
	if c == nil {
		return notFound(ref)
	}
	if c.Running && !force {
		return fmt.Errorf("container %s is running", ref)
	}
	delete(f.containers, c.ID)
	return nil
}

func (f *Fake) Exec(ctx context.Context, ref string, cfg engine.ExecConfig) (string, error) {
	f.mu.Lock()
	gate := f.execGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["exec"]++
	if f.ExecErr != nil {
		return "", f.ExecErr
	}
	c := f.lookup(ref)
	if c == nil {
		return "", notFound(ref)
	}
	if !c.Running {
		return "", fmt.Errorf("container %s is not running", ref)
	}
	f.nextID++
	id := fmt.Sprintf("exec%04d", f.nextID)
	f.execs[id] = &Exec{ID: id, ContainerID: c.ID, Config: cfg}
	f.execOrder = append(f.execOrder, id)
	return id, nil
}

func (f *Fake) ExecAttach(ctx context.Context, execID string, tty bool) (engine.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.execs[execID]
	if !ok {
		return nil, notFound(execID)
	}
	local, remote := net.Pipe()
	e.Remote = remote
	return &pipeStream{Conn: local}, nil
}

func (f *Fake) ExecResize(ctx context.Context, execID string, cols, rows uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ResizeErr != nil {
		return f.ResizeErr
	}
	e, ok := f.execs[execID]
	if !ok {
		return notFound(execID)
	}
	e.Resizes = append(e.Resizes, [2]uint{cols, rows})
	return nil
}

func (f *Fake) ExecOutput(ctx context.Context, ref string, cmd []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["exec_output"]++
	if f.lookup(ref) == nil {
		return "", notFound(ref)
	}
	if strings.Contains(strings.Join(cmd, " "), "command -v bash") && f.BashPath != "" {
		return f.BashPath + "\n", nil
	}
	return "", nil
}

func (f *Fake) setState(op, ref string, running bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.ActionErr != nil {
		return f.ActionErr
	}
	c := f.lookup(ref)
	if c == nil {
		return notFound(ref)
	}
	c.Running = running
	return nil
}

// lookup resolves a ref by ID first, then by name. Caller holds mu.
func (f *Fake) lookup(ref string) *Container {
	if c, ok := f.containers[ref]; ok {
		return c
	}
	for _, c := range f.containers {
		if c.Name == ref {
			return c
		}
	}
	return nil
}

func (f *Fake) newID() string {
	f.nextID++
	return fmt.Sprintf("%012x", f.nextID)
}

func notFound(ref string) error {
	return fmt.Errorf("%w: no such container: %s", engine.ErrNotFound, ref)
}

func statusString(running bool) string {
	if running {
		return "Up"
	}
	return "Exited"
}

// pipeStream adapts one end of a net.Pipe to engine.Stream.
type pipeStream struct {
	net.Conn
}

func (p *pipeStream) CloseWrite() error {
	return p.Conn.Close()
}
