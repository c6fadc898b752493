// Package engine is the capability surface hypedesk uses to talk to the
// container runtime.
//
// The runtime is an external, eventually-consistent oracle: any container
// may disappear or change state between two calls. Implementations report
// a vanished container as ErrNotFound and transport failures as
// ErrUnavailable. Redundant actions (starting a running container, stopping
// a stopped one) succeed.
package engine

import (
	"context"
	"io"
)

// Snapshot is one container as seen by a list call.
type Snapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Ports   []int  `json:"ports"`
}

// ContainerState is the result of inspecting a single container.
type ContainerState struct {
	ID      string
	Name    string
	Running bool
	Status  string
	Ports   []int
}

// PortBinding maps a container-internal port to a host port.
type PortBinding struct {
	ContainerPort int
	HostPort      int
}

// CreateRequest describes a container to create.
type CreateRequest struct {
	Image         string
	Name          string
	Env           map[string]string
	ExposedPorts  []int
	PortBindings  []PortBinding
	Binds         []string
	Labels        map[string]string
	RestartPolicy string
}

// ExecConfig describes a process to run inside a container.
type ExecConfig struct {
	Cmd          []string
	Tty          bool
	AttachStdin  bool
	AttachStdout bool
	AttachStderr bool
	Env          []string
}

// Stream is the hijacked bidirectional byte stream of an exec session.
type Stream interface {
	io.Reader
	io.Writer
	// CloseWrite half-closes the input side.
	CloseWrite() error
	// Close tears down the whole stream.
	Close() error
}

// Engine is the set of runtime operations hypedesk depends on.
type Engine interface {
	Ping(ctx context.Context) error
	ListContainers(ctx context.Context, all bool) ([]Snapshot, error)
	CreateContainer(ctx context.Context, req CreateRequest) (string, error)
	// Inspect accepts either a container ID or a name.
	Inspect(ctx context.Context, ref string) (*ContainerState, error)
	Start(ctx context.Context, ref string) error
	Stop(ctx context.Context, ref string) error
	Restart(ctx context.Context, ref string) error
	Remove(ctx context.Context, ref string, force bool) error

	// Exec creates an exec instance and returns its ID.
	Exec(ctx context.Context, ref string, cfg ExecConfig) (string, error)
	ExecAttach(ctx context.Context, execID string, tty bool) (Stream, error)
	ExecResize(ctx context.Context, execID string, cols, rows uint) error
	// ExecOutput runs cmd non-interactively and returns its stdout.
	ExecOutput(ctx context.Context, ref string, cmd []string) (string, error)
}

// RestartUnlessStopped is the restart policy applied to environments.
const RestartUnlessStopped = "unless-stopped"
