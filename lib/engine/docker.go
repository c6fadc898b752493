package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/onkernel/hypedesk/lib/logger"
)

// Docker implements Engine on top of the Docker Engine API.
type Docker struct {
	cli *client.Client
}

var _ Engine = (*Docker)(nil)

// NewDocker creates a Docker engine. An empty host uses DOCKER_HOST and the
// other standard environment variables.
func NewDocker(host string) (*Docker, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Docker{cli: cli}, nil
}

// Close releases the underlying HTTP transport.
func (d *Docker) Close() error {
	return d.cli.Close()
}

func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// ListContainers reports published ports only for running containers; the
// daemon omits bindings of stopped ones. Use Inspect to see those.
func (d *Docker) ListContainers(ctx context.Context, all bool) ([]Snapshot, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", mapError(err))
	}

	result := make([]Snapshot, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = trimName(c.Names[0])
		}
		result = append(result, Snapshot{
			ID:      c.ID,
			Name:    name,
			Image:   c.Image,
			Status:  c.Status,
			Running: c.State == "running",
			Ports:   publicPorts(c.Ports),
		})
	}
	return result, nil
}

func (d *Docker) CreateContainer(ctx context.Context, req CreateRequest) (string, error) {
	cfg, hostCfg, err := buildContainerConfig(req)
	if err != nil {
		return "", err
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, req.Name)
	if err != nil && errdefs.IsNotFound(err) {
		// Image is not present locally; pull once and retry.
		if pullErr := d.pullImage(ctx, req.Image); pullErr != nil {
			return "", pullErr
		}
		resp, err = d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, req.Name)
	}
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", req.Name, mapError(err))
	}

	for _, w := range resp.Warnings {
		logger.FromContext(ctx).WarnContext(ctx, "docker create warning", "name", req.Name, "warning", w)
	}
	return resp.ID, nil
}

func (d *Docker) pullImage(ctx context.Context, image string) error {
	log := logger.FromContext(ctx)
	log.InfoContext(ctx, "pulling image", "image", image)

	reader, err := d.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", image, mapError(err))
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", image, err)
	}
	log.InfoContext(ctx, "pulled image", "image", image)
	return nil
}

func (d *Docker) Inspect(ctx context.Context, ref string) (*ContainerState, error) {
	info, err := d.cli.ContainerInspect(ctx, ref)
	if err != nil {
		return nil, mapError(err)
	}

	state := &ContainerState{
		ID:   info.ID,
		Name: trimName(info.Name),
	}
	if info.State != nil {
		state.Running = info.State.Running
		state.Status = info.State.Status
	}
	if info.NetworkSettings != nil && len(info.NetworkSettings.Ports) > 0 {
		state.Ports = hostPorts(info.NetworkSettings.Ports)
	} else if info.HostConfig != nil {
		// Stopped containers have no live bindings; fall back to the
		// requested ones.
		state.Ports = hostPorts(info.HostConfig.PortBindings)
	}
	return state, nil
}

func (d *Docker) Start(ctx context.Context, ref string) error {
	return mapError(d.cli.ContainerStart(ctx, ref, container.StartOptions{}))
}

func (d *Docker) Stop(ctx context.Context, ref string) error {
	return mapError(d.cli.ContainerStop(ctx, ref, container.StopOptions{}))
}

func (d *Docker) Restart(ctx context.Context, ref string) error {
	return mapError(d.cli.ContainerRestart(ctx, ref, container.StopOptions{}))
}

func (d *Docker) Remove(ctx context.Context, ref string, force bool) error {
	return mapError(d.cli.ContainerRemove(ctx, ref, container.RemoveOptions{Force: force}))
}

func (d *Docker) Exec(ctx context.Context, ref string, cfg ExecConfig) (string, error) {
	resp, err := d.cli.ContainerExecCreate(ctx, ref, types.ExecConfig{
		Cmd:          cfg.Cmd,
		Tty:          cfg.Tty,
		AttachStdin:  cfg.AttachStdin,
		AttachStdout: cfg.AttachStdout,
		AttachStderr: cfg.AttachStderr,
		Env:          cfg.Env,
	})
	if err != nil {
		return "", fmt.Errorf("create exec: %w", mapError(err))
	}
	return resp.ID, nil
}

func (d *Docker) ExecAttach(ctx context.Context, execID string, tty bool) (Stream, error) {
	resp, err := d.cli.ContainerExecAttach(ctx, execID, types.ExecStartCheck{Tty: tty})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", mapError(err))
	}
	return &hijackedStream{resp: resp}, nil
}

func (d *Docker) ExecResize(ctx context.Context, execID string, cols, rows uint) error {
	err := d.cli.ContainerExecResize(ctx, execID, container.ResizeOptions{Width: cols, Height: rows})
	return mapError(err)
}

func (d *Docker) ExecOutput(ctx context.Context, ref string, cmd []string) (string, error) {
	execID, err := d.Exec(ctx, ref, ExecConfig{Cmd: cmd, AttachStdout: true, AttachStderr: true})
	if err != nil {
		return "", err
	}
	resp, err := d.cli.ContainerExecAttach(ctx, execID, types.ExecStartCheck{})
	if err != nil {
		return "", fmt.Errorf("attach exec: %w", mapError(err))
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return "", fmt.Errorf("read exec output: %w", err)
	}
	return stdout.String(), nil
}

// hijackedStream adapts a hijacked exec connection to Stream.
type hijackedStream struct {
	resp types.HijackedResponse
}

func (s *hijackedStream) Read(p []byte) (int, error)  { return s.resp.Reader.Read(p) }
func (s *hijackedStream) Write(p []byte) (int, error) { return s.resp.Conn.Write(p) }
func (s *hijackedStream) CloseWrite() error           { return s.resp.CloseWrite() }

func (s *hijackedStream) Close() error {
	s.resp.Close()
	return nil
}

// buildContainerConfig translates a CreateRequest into Docker's types.
func buildContainerConfig(req CreateRequest) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	for _, p := range req.ExposedPorts {
		port, err := nat.NewPort("tcp", strconv.Itoa(p))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid exposed port %d: %w", p, err)
		}
		exposed[port] = struct{}{}
	}

	bindings := nat.PortMap{}
	for _, b := range req.PortBindings {
		port, err := nat.NewPort("tcp", strconv.Itoa(b.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %d: %w", b.ContainerPort, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostPort: strconv.Itoa(b.HostPort)})
	}

	cfg := &container.Config{
		Image:        req.Image,
		Env:          envList(req.Env),
		ExposedPorts: exposed,
		Labels:       req.Labels,
	}
	hostCfg := &container.HostConfig{
		PortBindings:  bindings,
		Binds:         req.Binds,
		RestartPolicy: restartPolicy(req.RestartPolicy),
	}
	return cfg, hostCfg, nil
}

func restartPolicy(name string) container.RestartPolicy {
	switch name {
	case RestartUnlessStopped:
		return container.RestartPolicy{Name: RestartUnlessStopped}
	case "always":
		return container.RestartPolicy{Name: "always"}
	case "on-failure":
		return container.RestartPolicy{Name: "on-failure"}
	default:
		return container.RestartPolicy{}
	}
}

// envList renders an env map as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// publicPorts extracts the distinct host ports from a list result.
func publicPorts(ports []types.Port) []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range ports {
		if p.PublicPort == 0 || seen[int(p.PublicPort)] {
			continue
		}
		seen[int(p.PublicPort)] = true
		out = append(out, int(p.PublicPort))
	}
	sort.Ints(out)
	return out
}

// hostPorts extracts the distinct host ports from a port map, ordered by
// container port.
func hostPorts(pm nat.PortMap) []int {
	keys := make([]nat.Port, 0, len(pm))
	for k := range pm {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })

	seen := map[int]bool{}
	var out []int
	for _, k := range keys {
		for _, b := range pm[k] {
			hp, err := strconv.Atoi(b.HostPort)
			if err != nil || hp == 0 || seen[hp] {
				continue
			}
			seen[hp] = true
			out = append(out, hp)
		}
	}
	return out
}

func trimName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// mapError normalizes Docker client errors onto the package sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errdefs.IsNotModified(err):
		// Already in the requested state.
		return nil
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case client.IsErrConnectionFailed(err), errdefs.IsUnavailable(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
