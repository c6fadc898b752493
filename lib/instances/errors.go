package instances

import (
	"errors"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/ports"
)

var (
	// ErrInvalidTemplate is returned when the template ID is not in the catalog
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrInvalidResources is returned when a resource spec is not a valid size
	ErrInvalidResources = errors.New("invalid resources")

	// ErrNotFound is returned when an instance is not found, not owned by the
	// caller, or has no container yet
	ErrNotFound = errors.New("instance not found")

	// ErrContainerGone is returned when the runtime no longer has the
	// instance's container. The instance is terminated by then.
	ErrContainerGone = errors.New("container gone")

	// ErrRuntimeUnavailable is returned when the container runtime cannot be reached
	ErrRuntimeUnavailable = engine.ErrUnavailable

	// ErrNoPortAvailable is returned when host port allocation fails
	ErrNoPortAvailable = ports.ErrNoPortAvailable
)
